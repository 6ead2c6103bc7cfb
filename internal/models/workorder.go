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

// Package models defines the data structures shared across the ingestion pipeline.
package models

import "time"

// Attachment represents a file attached to an inbound email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// InboundMessage is one email pulled from the shared vendor mailbox.
//
// The pipeline treats it as read-only. The only mailbox-side mutation is the
// seen flag, set via mailbox.MarkSeen after a terminal decision is reached.
type InboundMessage struct {
	UID         uint32       `json:"uid"`
	MessageID   string       `json:"message_id"`
	From        string       `json:"from"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	ReceivedAt  time.Time    `json:"received_at"`
	Attachments []Attachment `json:"attachments"`

	// ParseError is set when the message source could not be decoded. Such
	// messages carry no header fields; the poller terminates them without
	// admission so they still get a decision and the seen flag.
	ParseError string `json:"parse_error,omitempty"`
}

// PDFKind classifies the primary PDF attachment for submission routing.
type PDFKind string

const (
	PDFKindPO    PDFKind = "po"
	PDFKindOther PDFKind = "other"
)

// ExtractedFields is the partial field set produced by an extraction strategy.
//
// All fields are optional; absence is meaningful and drives the confidence
// score. Strategies never coerce a missing field to the empty string with
// intent: empty means "not found".
type ExtractedFields struct {
	WorkOrderNumber    string `json:"work_order_number,omitempty"`
	PONumber           string `json:"po_number,omitempty"`
	Customer           string `json:"customer,omitempty"`
	SiteAddress        string `json:"site_address,omitempty"`
	SiteLocation       string `json:"site_location,omitempty"`
	ProblemDescription string `json:"problem_description,omitempty"`
	NotToExceedAmount  string `json:"not_to_exceed_amount,omitempty"`

	// PrimaryPDF is the classified PDF attachment, when one was found.
	PrimaryPDF *Attachment `json:"-"`
	PDFKind    PDFKind     `json:"pdf_kind,omitempty"`
}

// HasIdentifier reports whether either identifier field was extracted.
func (f ExtractedFields) HasIdentifier() bool {
	return f.WorkOrderNumber != "" || f.PONumber != ""
}

// StatusNeedsScheduling is the synthesized status every ingested work order
// carries into the CRM.
const StatusNeedsScheduling = "Needs to be Scheduled"

// WorkOrderPayload is the normalized record ready for CRM submission.
// It exists only in memory for the duration of one message's processing.
type WorkOrderPayload struct {
	WorkOrderNumber    string `json:"work_order_number,omitempty"`
	PONumber           string `json:"po_number,omitempty"`
	Customer           string `json:"customer,omitempty"`
	SiteAddress        string `json:"site_address,omitempty"`
	SiteLocation       string `json:"site_location,omitempty"`
	ProblemDescription string `json:"problem_description,omitempty"`
	NotToExceedAmount  string `json:"not_to_exceed_amount,omitempty"`
	BillingAddress     string `json:"billing_address,omitempty"`
	Status             string `json:"status"`
	Provenance         string `json:"provenance"`
}

// ReviewRecord is the immutable snapshot written for messages the pipeline
// declined to auto-create. Human operators act on it externally; this
// pipeline never reads it back.
type ReviewRecord struct {
	QueuedAt   time.Time        `json:"queued_at"`
	Vendor     string           `json:"vendor"`
	Sender     string           `json:"sender"`
	Subject    string           `json:"subject"`
	MessageID  string           `json:"message_id"`
	Confidence float64          `json:"confidence"`
	Payload    WorkOrderPayload `json:"payload"`
	Fields     ExtractedFields  `json:"fields"`
	Attempts   int              `json:"attempts"`
	LastError  string           `json:"last_error,omitempty"`
}

// Outcome is the terminal state of processing one inbound message.
type Outcome string

const (
	OutcomeSkipped          Outcome = "skipped"
	OutcomeDuplicate        Outcome = "duplicate_found"
	OutcomeCreated          Outcome = "created"
	OutcomeQueuedForReview  Outcome = "queued_for_review"
	OutcomeSubmissionFailed Outcome = "submission_failed"
)

// SkipReasonSenderNotAllowed is the skip reason for senders outside every
// vendor's domain allowlist. Expected filtering, not an error.
const SkipReasonSenderNotAllowed = "sender_not_allowed"

// SkipReasonUnparseable is the skip reason for messages whose raw source
// could not be decoded.
const SkipReasonUnparseable = "unparseable_message"

// Decision records the single terminal outcome for one InboundMessage.
type Decision struct {
	Outcome    Outcome  `json:"outcome"`
	Reason     string   `json:"reason,omitempty"`
	MatchIDs   []string `json:"match_ids,omitempty"`
	RemoteID   string   `json:"remote_id,omitempty"`
	ReviewPath string   `json:"review_path,omitempty"`
	Err        error    `json:"-"`
}
