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

// Package extract turns unstructured vendor input (email text or attached
// PDFs) into a partial work-order field set. One strategy per known
// vendor, plus a generic PDF/OCR fallback. Strategies never fail on
// malformed input; a field that cannot be found is simply left absent.
package extract

import (
	"context"

	"github.com/paneworks/ingestion/internal/models"
)

// Strategy converts one inbound message into a partial field set.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, msg models.InboundMessage) models.ExtractedFields
}

// Analyzer is the document-analysis collaborator used by the generic
// strategy for scanned PDFs. Implemented by docanalysis.Client.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, pdfData []byte) (string, error)
}

// Set is the tagged strategy set: vendor strategy name → strategy. Adding a
// vendor means adding one strategy here and one registry entry; the
// admission controller never changes.
type Set struct {
	byName  map[string]Strategy
	generic Strategy
}

// NewSet builds the strategy set. analyzer may be nil, which disables the
// OCR fallback for scanned PDFs.
func NewSet(analyzer Analyzer) *Set {
	generic := &genericStrategy{analyzer: analyzer}

	set := &Set{
		byName:  make(map[string]Strategy),
		generic: generic,
	}
	for _, s := range []Strategy{
		newLabelStrategy("truesource", map[string][]string{
			fieldWorkOrder: {"tracking number", "tracking #"},
		}),
		newLabelStrategy("servicechannel", map[string][]string{
			fieldWorkOrder: {"tracking number", "tracking #"},
			fieldSiteLoc:   {"location id"},
			fieldProblem:   {"problem code"},
		}),
		generic,
	} {
		set.byName[s.Name()] = s
	}
	return set
}

// ForVendor returns the strategy registered under the given name, or the
// generic strategy for allowlisted-but-unmapped vendors.
func (s *Set) ForVendor(strategyName string) Strategy {
	if st, ok := s.byName[strategyName]; ok {
		return st
	}
	return s.generic
}

// labelStrategy is a per-vendor text strategy: single-pass label matching
// over subject + body, with the two-line address-block fallback.
type labelStrategy struct {
	name    string
	matcher *labelMatcher
}

func newLabelStrategy(name string, extras map[string][]string) *labelStrategy {
	return &labelStrategy{
		name:    name,
		matcher: newLabelMatcher(extras),
	}
}

func (s *labelStrategy) Name() string { return s.name }

func (s *labelStrategy) Extract(_ context.Context, msg models.InboundMessage) models.ExtractedFields {
	fields := s.matcher.match(msg.Subject + "\n" + msg.Body)

	// Text vendors still attach their PO PDF sometimes; classify it so the
	// submitter routes it to the right multipart field.
	if pdfAttachment, kind := primaryPDF(msg); pdfAttachment != nil {
		fields.PrimaryPDF = pdfAttachment
		fields.PDFKind = kind
	}

	return fields
}
