// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mailbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/paneworks/ingestion/internal/models"
)

// Processor runs one message through admission and returns its terminal
// decision. Implemented by admission.Controller.
type Processor interface {
	Process(ctx context.Context, msg models.InboundMessage) models.Decision
}

// SeenFilter is an optional cross-window duplicate guard keyed by message
// id (belt and braces for overlapping lookback windows, or a second poller
// sharing the mailbox). Implemented by seen.Filter.
type SeenFilter interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
}

// Ledger is an optional durable record of per-message outcomes.
// Implemented by ledger.Store.
type Ledger interface {
	Record(ctx context.Context, msg models.InboundMessage, d models.Decision) error
}

// Poller drives the mailbox: fetch unseen messages within a trailing time
// window, process each sequentially through admission, mark each seen after
// its decision, sleep, repeat. Messages run one at a time; a slow message
// delays the rest of its batch.
type Poller struct {
	mailbox   Mailbox
	processor Processor
	seen      SeenFilter // may be nil
	ledger    Ledger     // may be nil
	interval  time.Duration
	lookback  time.Duration

	// mu is the mailbox-wide lock, held for one batch's fetch-and-iterate.
	mu sync.Mutex
}

// PollerConfig holds the poller's collaborators.
type PollerConfig struct {
	Mailbox   Mailbox
	Processor Processor
	Seen      SeenFilter
	Ledger    Ledger
	Interval  time.Duration
	Lookback  time.Duration
}

// NewPoller creates a poller. The lookback window should exceed the
// interval so no message slips between polls; the seen flag prevents
// reprocessing inside the overlap.
func NewPoller(cfg PollerConfig) *Poller {
	return &Poller{
		mailbox:   cfg.Mailbox,
		processor: cfg.Processor,
		seen:      cfg.Seen,
		ledger:    cfg.Ledger,
		interval:  cfg.Interval,
		lookback:  cfg.Lookback,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
// A failure anywhere in one iteration is logged and the loop continues;
// the process never exits over a bad message or transient connectivity.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("mailbox poller starting",
		"interval", p.interval,
		"lookback", p.lookback,
	)

	// Initial poll immediately
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("mailbox poller stopping")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs a single fetch-and-iterate batch under the mailbox lock.
func (p *Poller) Poll(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	since := time.Now().UTC().Add(-p.lookback)

	messages, err := p.mailbox.FetchUnseen(ctx, since)
	if err != nil {
		slog.Error("failed to fetch unseen messages", "error", err)
		return
	}

	if len(messages) == 0 {
		slog.Debug("no unseen messages", "since", since.Format(time.RFC3339))
		return
	}

	slog.Info("processing batch", "count", len(messages))

	for _, msg := range messages {
		p.processOne(ctx, msg)
	}
}

// processOne handles one message end to end: optional cross-window dedup,
// admission, optional ledger write, then mark seen regardless of outcome.
func (p *Poller) processOne(ctx context.Context, msg models.InboundMessage) {
	if p.seen != nil && msg.MessageID != "" {
		isNew, err := p.seen.IsNew(ctx, msg.MessageID)
		if err != nil {
			slog.Warn("seen filter check failed, proceeding", "error", err)
		} else if !isNew {
			slog.Debug("message already handled in an overlapping window",
				"message_id", msg.MessageID,
			)
			p.markSeen(ctx, msg)
			return
		}
	}

	var decision models.Decision
	if msg.ParseError != "" {
		// The source never decoded, so admission has nothing to work with;
		// terminate here so the message still gets a decision and the flag.
		decision = models.Decision{
			Outcome: models.OutcomeSkipped,
			Reason:  models.SkipReasonUnparseable,
			Err:     errors.New(msg.ParseError),
		}
		slog.Error("message source unparseable, skipping",
			"uid", msg.UID,
			"error", msg.ParseError,
		)
	} else {
		decision = p.processor.Process(ctx, msg)

		slog.Info("message processed",
			"uid", msg.UID,
			"message_id", msg.MessageID,
			"from", msg.From,
			"outcome", decision.Outcome,
			"reason", decision.Reason,
			"remote_id", decision.RemoteID,
			"review_path", decision.ReviewPath,
		)
	}

	if p.ledger != nil {
		if err := p.ledger.Record(ctx, msg, decision); err != nil {
			slog.Warn("failed to record decision in ledger", "error", err)
		}
	}

	// Seen is set for every terminal outcome, success or failure. This
	// gives at-most-one-attempt semantics; retries live in the review
	// queue, not the mailbox.
	p.markSeen(ctx, msg)
}

func (p *Poller) markSeen(ctx context.Context, msg models.InboundMessage) {
	if err := p.mailbox.MarkSeen(ctx, msg.UID); err != nil {
		slog.Error("failed to mark message seen",
			"uid", msg.UID,
			"message_id", msg.MessageID,
			"error", err,
		)
	}
}
