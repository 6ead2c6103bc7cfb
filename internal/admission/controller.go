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

// Package admission decides, for each inbound message, whether to create a
// work order in the CRM, queue it for human review, or skip it. The state
// machine is classify → extract → normalize → score → dedup → decide;
// every message reaches exactly one terminal decision, and no error raised
// while processing one message ever escapes to the poll loop.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paneworks/ingestion/internal/crm"
	"github.com/paneworks/ingestion/internal/extract"
	"github.com/paneworks/ingestion/internal/models"
	"github.com/paneworks/ingestion/internal/score"
	"github.com/paneworks/ingestion/internal/vendors"
)

// placeholderBillingAddress fills the billing field on every submission;
// vendor emails never carry one.
const placeholderBillingAddress = "Billing address on file"

// DuplicateChecker queries the system of record for existing work orders.
// Implemented by crm.Client.
type DuplicateChecker interface {
	FindDuplicates(ctx context.Context, workOrderNumber, poNumber string) []crm.Match
}

// Submitter creates work orders in the CRM. Implemented by crm.Client.
type Submitter interface {
	CreateWorkOrder(ctx context.Context, payload models.WorkOrderPayload, attachment *models.Attachment, kind models.PDFKind) (string, error)
}

// ReviewWriter persists records for manual follow-up. Implemented by
// review.Writer.
type ReviewWriter interface {
	Write(rec models.ReviewRecord) (string, error)
}

// Controller orchestrates admission for one message at a time.
type Controller struct {
	registry   *vendors.Registry
	strategies *extract.Set
	duplicates DuplicateChecker
	submitter  Submitter
	reviews    ReviewWriter
	threshold  float64
	dryRun     bool

	now func() time.Time
}

// Config holds the controller's collaborators and policy knobs.
type Config struct {
	Registry   *vendors.Registry
	Strategies *extract.Set
	Duplicates DuplicateChecker
	Submitter  Submitter
	Reviews    ReviewWriter
	// Threshold is the minimum confidence for auto-creation, already
	// clamped to [0, 1] by config.Load.
	Threshold float64
	DryRun    bool
}

// NewController creates an admission controller.
func NewController(cfg Config) *Controller {
	return &Controller{
		registry:   cfg.Registry,
		strategies: cfg.Strategies,
		duplicates: cfg.Duplicates,
		submitter:  cfg.Submitter,
		reviews:    cfg.Reviews,
		threshold:  cfg.Threshold,
		dryRun:     cfg.DryRun,
		now:        time.Now,
	}
}

// Process runs one message through the admission state machine and returns
// its terminal decision.
func (c *Controller) Process(ctx context.Context, msg models.InboundMessage) models.Decision {
	// Classify. Unrecognized senders never reach extraction or the CRM.
	profile := c.registry.Match(msg.From)
	if profile == nil {
		slog.Debug("sender not allowlisted, skipping",
			"from", msg.From,
			"message_id", msg.MessageID,
		)
		return models.Decision{
			Outcome: models.OutcomeSkipped,
			Reason:  models.SkipReasonSenderNotAllowed,
		}
	}

	// Extract.
	strategy := c.strategies.ForVendor(profile.Strategy)
	fields := strategy.Extract(ctx, msg)

	// Normalize.
	if fields.Customer == "" {
		fields.Customer = profile.Name
	}
	if fields.ProblemDescription == "" {
		fields.ProblemDescription = msg.Subject
	}
	payload := c.buildPayload(profile.Name, msg, fields)

	// Score.
	confidence := score.Confidence(fields)

	slog.Info("message extracted",
		"vendor", profile.Name,
		"strategy", strategy.Name(),
		"message_id", msg.MessageID,
		"work_order_number", fields.WorkOrderNumber,
		"po_number", fields.PONumber,
		"confidence", confidence,
	)

	// Dedup. The CRM must never receive a second record for the same
	// physical request.
	matches := c.duplicates.FindDuplicates(ctx, fields.WorkOrderNumber, fields.PONumber)
	if len(matches) > 0 {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		slog.Info("duplicate work order found, skipping create",
			"vendor", profile.Name,
			"message_id", msg.MessageID,
			"match_ids", ids,
		)
		return models.Decision{
			Outcome:  models.OutcomeDuplicate,
			MatchIDs: ids,
		}
	}

	// Decide.
	if confidence < c.threshold {
		return c.queueForReview(profile.Name, msg, payload, fields, confidence, "")
	}

	if c.dryRun {
		slog.Info("dry run, would create work order",
			"vendor", profile.Name,
			"message_id", msg.MessageID,
			"payload", fmt.Sprintf("%+v", payload),
		)
		return models.Decision{
			Outcome: models.OutcomeSkipped,
			Reason:  "dry_run",
		}
	}

	remoteID, err := c.submitter.CreateWorkOrder(ctx, payload, fields.PrimaryPDF, fields.PDFKind)
	if err != nil {
		slog.Error("work order submission failed",
			"vendor", profile.Name,
			"message_id", msg.MessageID,
			"error", err,
		)
		d := c.queueForReview(profile.Name, msg, payload, fields, confidence, err.Error())
		d.Outcome = models.OutcomeSubmissionFailed
		d.Err = err
		return d
	}

	return models.Decision{
		Outcome:  models.OutcomeCreated,
		RemoteID: remoteID,
	}
}

// buildPayload assembles the normalized submission record with its
// synthesized status, provenance note, and placeholder billing address.
func (c *Controller) buildPayload(vendor string, msg models.InboundMessage, fields models.ExtractedFields) models.WorkOrderPayload {
	return models.WorkOrderPayload{
		WorkOrderNumber:    fields.WorkOrderNumber,
		PONumber:           fields.PONumber,
		Customer:           fields.Customer,
		SiteAddress:        fields.SiteAddress,
		SiteLocation:       fields.SiteLocation,
		ProblemDescription: fields.ProblemDescription,
		NotToExceedAmount:  fields.NotToExceedAmount,
		BillingAddress:     placeholderBillingAddress,
		Status:             models.StatusNeedsScheduling,
		Provenance: fmt.Sprintf("Ingested from %s email %s at %s",
			vendor, msg.MessageID, c.now().UTC().Format(time.RFC3339)),
	}
}

// queueForReview writes a review record and returns the queued decision.
// A failed write is still terminal; the error rides along in the decision
// for the poller's log line.
func (c *Controller) queueForReview(vendor string, msg models.InboundMessage, payload models.WorkOrderPayload, fields models.ExtractedFields, confidence float64, lastError string) models.Decision {
	rec := models.ReviewRecord{
		QueuedAt:   c.now().UTC(),
		Vendor:     vendor,
		Sender:     msg.From,
		Subject:    msg.Subject,
		MessageID:  msg.MessageID,
		Confidence: confidence,
		Payload:    payload,
		Fields:     fields,
		Attempts:   1,
		LastError:  lastError,
	}

	path, err := c.reviews.Write(rec)
	if err != nil {
		slog.Error("failed to write review record",
			"vendor", vendor,
			"message_id", msg.MessageID,
			"error", err,
		)
		return models.Decision{
			Outcome: models.OutcomeQueuedForReview,
			Err:     err,
		}
	}

	return models.Decision{
		Outcome:    models.OutcomeQueuedForReview,
		ReviewPath: path,
	}
}
