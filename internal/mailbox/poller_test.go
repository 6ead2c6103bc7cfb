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
	"testing"
	"time"

	"github.com/paneworks/ingestion/internal/models"
)

// fakeMailbox implements Mailbox with canned batches.
type fakeMailbox struct {
	messages  []models.InboundMessage
	fetchErr  error
	seenUIDs  []uint32
	fetchSeen bool
}

func (f *fakeMailbox) FetchUnseen(_ context.Context, _ time.Time) ([]models.InboundMessage, error) {
	f.fetchSeen = true
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.messages, nil
}

func (f *fakeMailbox) MarkSeen(_ context.Context, uid uint32) error {
	f.seenUIDs = append(f.seenUIDs, uid)
	return nil
}

// fakeProcessor records the order messages arrive in.
type fakeProcessor struct {
	order     []uint32
	decisions map[uint32]models.Decision
}

func (f *fakeProcessor) Process(_ context.Context, msg models.InboundMessage) models.Decision {
	f.order = append(f.order, msg.UID)
	if d, ok := f.decisions[msg.UID]; ok {
		return d
	}
	return models.Decision{Outcome: models.OutcomeCreated, RemoteID: "wo-1"}
}

// fakeSeenFilter marks selected message ids as already handled.
type fakeSeenFilter struct {
	already map[string]bool
	err     error
}

func (f *fakeSeenFilter) IsNew(_ context.Context, messageID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.already[messageID], nil
}

// fakeLedger records decisions handed to it.
type fakeLedger struct {
	entries []models.Decision
}

func (f *fakeLedger) Record(_ context.Context, _ models.InboundMessage, d models.Decision) error {
	f.entries = append(f.entries, d)
	return nil
}

func batch(uids ...uint32) []models.InboundMessage {
	msgs := make([]models.InboundMessage, len(uids))
	for i, uid := range uids {
		msgs[i] = models.InboundMessage{
			UID:       uid,
			MessageID: "<msg-" + string(rune('a'+i)) + "@truesource.com>",
			From:      "dispatch@truesource.com",
		}
	}
	return msgs
}

// TestPoller_ProcessesInDeliveryOrder verifies messages within one batch
// run sequentially in mailbox order and each is marked seen.
func TestPoller_ProcessesInDeliveryOrder(t *testing.T) {
	mbox := &fakeMailbox{messages: batch(3, 1, 7)}
	proc := &fakeProcessor{}

	p := NewPoller(PollerConfig{
		Mailbox:   mbox,
		Processor: proc,
		Interval:  time.Minute,
		Lookback:  time.Hour,
	})

	p.Poll(context.Background())

	wantOrder := []uint32{3, 1, 7}
	if len(proc.order) != 3 {
		t.Fatalf("processed %d messages, want 3", len(proc.order))
	}
	for i, uid := range wantOrder {
		if proc.order[i] != uid {
			t.Errorf("order[%d] = %d, want %d", i, proc.order[i], uid)
		}
	}
	if len(mbox.seenUIDs) != 3 {
		t.Errorf("marked seen %d, want 3", len(mbox.seenUIDs))
	}
}

// TestPoller_MarksSeenOnFailureOutcomes verifies messages are marked seen
// even when processing ends in failure outcomes.
func TestPoller_MarksSeenOnFailureOutcomes(t *testing.T) {
	mbox := &fakeMailbox{messages: batch(1, 2)}
	proc := &fakeProcessor{
		decisions: map[uint32]models.Decision{
			1: {Outcome: models.OutcomeSubmissionFailed, Err: errors.New("crm down")},
			2: {Outcome: models.OutcomeQueuedForReview, Err: errors.New("disk full")},
		},
	}

	p := NewPoller(PollerConfig{
		Mailbox:   mbox,
		Processor: proc,
		Interval:  time.Minute,
		Lookback:  time.Hour,
	})

	p.Poll(context.Background())

	if len(mbox.seenUIDs) != 2 {
		t.Errorf("marked seen %d, want 2 regardless of outcome", len(mbox.seenUIDs))
	}
}

// TestPoller_FetchFailureContained verifies a fetch error ends the
// iteration without processing and without panicking.
func TestPoller_FetchFailureContained(t *testing.T) {
	mbox := &fakeMailbox{fetchErr: errors.New("connection reset")}
	proc := &fakeProcessor{}

	p := NewPoller(PollerConfig{
		Mailbox:   mbox,
		Processor: proc,
		Interval:  time.Minute,
		Lookback:  time.Hour,
	})

	p.Poll(context.Background())

	if !mbox.fetchSeen {
		t.Error("fetch never attempted")
	}
	if len(proc.order) != 0 {
		t.Errorf("processed %d messages after fetch failure", len(proc.order))
	}
}

// TestPoller_SeenFilterSkips verifies a message already handled in an
// overlapping window is skipped but still marked seen.
func TestPoller_SeenFilterSkips(t *testing.T) {
	msgs := batch(1, 2)
	mbox := &fakeMailbox{messages: msgs}
	proc := &fakeProcessor{}
	filter := &fakeSeenFilter{already: map[string]bool{msgs[0].MessageID: true}}

	p := NewPoller(PollerConfig{
		Mailbox:   mbox,
		Processor: proc,
		Seen:      filter,
		Interval:  time.Minute,
		Lookback:  time.Hour,
	})

	p.Poll(context.Background())

	if len(proc.order) != 1 || proc.order[0] != 2 {
		t.Errorf("processed = %v, want only uid 2", proc.order)
	}
	if len(mbox.seenUIDs) != 2 {
		t.Errorf("marked seen %d, want 2 (skipped message still flagged)", len(mbox.seenUIDs))
	}
}

// TestPoller_SeenFilterErrorProceeds verifies a filter failure does not
// block processing.
func TestPoller_SeenFilterErrorProceeds(t *testing.T) {
	mbox := &fakeMailbox{messages: batch(1)}
	proc := &fakeProcessor{}
	filter := &fakeSeenFilter{err: errors.New("redis timeout")}

	p := NewPoller(PollerConfig{
		Mailbox:   mbox,
		Processor: proc,
		Seen:      filter,
		Interval:  time.Minute,
		Lookback:  time.Hour,
	})

	p.Poll(context.Background())

	if len(proc.order) != 1 {
		t.Errorf("processed = %v, want uid 1 despite filter error", proc.order)
	}
}

// TestPoller_UnparseableMessageTerminates verifies a message whose source
// failed to decode still reaches a terminal decision: skipped with a
// recorded reason, ledgered, and marked seen, without touching admission.
func TestPoller_UnparseableMessageTerminates(t *testing.T) {
	mbox := &fakeMailbox{messages: []models.InboundMessage{
		{UID: 9, ParseError: "open mail reader: malformed header"},
	}}
	proc := &fakeProcessor{}
	led := &fakeLedger{}

	p := NewPoller(PollerConfig{
		Mailbox:   mbox,
		Processor: proc,
		Ledger:    led,
		Interval:  time.Minute,
		Lookback:  time.Hour,
	})

	p.Poll(context.Background())

	if len(proc.order) != 0 {
		t.Errorf("admission ran for unparseable message: %v", proc.order)
	}
	if len(mbox.seenUIDs) != 1 || mbox.seenUIDs[0] != 9 {
		t.Fatalf("seenUIDs = %v, want [9]", mbox.seenUIDs)
	}
	if len(led.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(led.entries))
	}
	d := led.entries[0]
	if d.Outcome != models.OutcomeSkipped || d.Reason != models.SkipReasonUnparseable {
		t.Errorf("decision = %+v, want skipped/unparseable_message", d)
	}
	if d.Err == nil {
		t.Error("decision Err nil, want parse error context")
	}
}

// TestPoller_RunStopsOnCancel verifies Run exits when the context is
// cancelled.
func TestPoller_RunStopsOnCancel(t *testing.T) {
	mbox := &fakeMailbox{}
	proc := &fakeProcessor{}

	p := NewPoller(PollerConfig{
		Mailbox:   mbox,
		Processor: proc,
		Interval:  10 * time.Millisecond,
		Lookback:  time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
