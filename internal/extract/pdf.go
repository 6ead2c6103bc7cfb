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
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paneworks/ingestion/internal/models"
)

// MinEmbeddedTextLen is the minimum embedded-text length below which a PDF
// is treated as scanned/image-only and routed to document analysis.
const MinEmbeddedTextLen = 100

// primaryPDF returns the first PDF attachment (by content type or filename)
// together with its submission classification, or nil when the message
// carries no PDF.
func primaryPDF(msg models.InboundMessage) (*models.Attachment, models.PDFKind) {
	for i := range msg.Attachments {
		a := &msg.Attachments[i]
		ct := strings.ToLower(a.ContentType)
		name := strings.ToLower(a.Filename)
		if strings.Contains(ct, "application/pdf") || strings.HasSuffix(name, ".pdf") {
			return a, classifyPDFName(a.Filename)
		}
	}
	return nil, ""
}

// classifyPDFName tags a PDF attachment for multipart routing: filenames
// containing "po"/"purchase" or starting with "vendorpo" carry the purchase
// order; everything else is a generic attachment.
func classifyPDFName(filename string) models.PDFKind {
	name := strings.ToLower(filename)
	if strings.HasPrefix(name, "vendorpo") ||
		strings.Contains(name, "po") ||
		strings.Contains(name, "purchase") {
		return models.PDFKindPO
	}
	return models.PDFKindOther
}

// embeddedText extracts the text layer of a PDF.
func embeddedText(data []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs; the strategy
	// contract requires never failing on bad attachments.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text extraction panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return buf.String(), nil
}
