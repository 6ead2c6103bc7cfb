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

package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/paneworks/ingestion/internal/models"
)

// genericStrategy handles vendors without a dedicated text strategy and any
// message whose work order arrives as a PDF. Embedded text is preferred;
// scanned PDFs (embedded text below MinEmbeddedTextLen) go through the
// document-analysis fallback. Analysis failures degrade to whatever text is
// already available; they never propagate.
type genericStrategy struct {
	analyzer Analyzer
}

func (s *genericStrategy) Name() string { return "generic" }

func (s *genericStrategy) Extract(ctx context.Context, msg models.InboundMessage) models.ExtractedFields {
	matcher := newLabelMatcher(nil)

	pdfAttachment, kind := primaryPDF(msg)
	if pdfAttachment == nil {
		// No PDF: match over the email body itself.
		return matcher.match(msg.Subject + "\n" + msg.Body)
	}

	text := s.pdfText(ctx, msg, pdfAttachment)
	if strings.TrimSpace(text) == "" {
		// Nothing usable out of the PDF; fall back to the body.
		text = msg.Body
	}

	fields := matcher.match(msg.Subject + "\n" + text)
	fields.PrimaryPDF = pdfAttachment
	fields.PDFKind = kind
	return fields
}

// pdfText returns the best text available for a PDF attachment: the
// embedded text layer when it looks real, otherwise the document-analysis
// result for scanned/image-only PDFs.
func (s *genericStrategy) pdfText(ctx context.Context, msg models.InboundMessage, att *models.Attachment) string {
	text, err := embeddedText(att.Data)
	if err != nil {
		slog.Warn("pdf text extraction failed",
			"message_id", msg.MessageID,
			"filename", att.Filename,
			"error", err,
		)
		text = ""
	}

	if len(strings.TrimSpace(text)) >= MinEmbeddedTextLen {
		return text
	}

	if s.analyzer == nil {
		slog.Debug("scanned pdf but document analysis disabled",
			"message_id", msg.MessageID,
			"filename", att.Filename,
		)
		return text
	}

	slog.Info("embedded text insufficient, running document analysis",
		"message_id", msg.MessageID,
		"filename", att.Filename,
		"embedded_len", len(strings.TrimSpace(text)),
	)

	analyzed, err := s.analyzer.AnalyzeDocument(ctx, att.Data)
	if err != nil {
		slog.Error("document analysis failed, degrading to embedded text",
			"message_id", msg.MessageID,
			"filename", att.Filename,
			"error", err,
		)
		return text
	}

	return analyzed
}
