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
	"strings"
	"testing"
	"time"
)

// crlf converts a readable fixture into RFC 5322 line endings.
func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

// TestParseMessage_PlainText verifies header extraction and the body of a
// single-part message, including the display-form From address.
func TestParseMessage_PlainText(t *testing.T) {
	raw := crlf(`From: Dispatch <dispatch@truesource.com>
To: workorders@paneworks.com
Subject: New work order 12345
Message-Id: <wo-12345@truesource.com>
Date: Fri, 28 Aug 2026 12:00:00 +0000
MIME-Version: 1.0
Content-Type: text/plain; charset=utf-8

Work Order: 12345
Customer Name: Acme Co
`)

	received := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	msg, err := parseMessage(41, received, raw)
	if err != nil {
		t.Fatalf("parseMessage: %v", err)
	}

	if msg.UID != 41 {
		t.Errorf("UID = %d, want 41", msg.UID)
	}
	if !msg.ReceivedAt.Equal(received) {
		t.Errorf("ReceivedAt = %v, want %v", msg.ReceivedAt, received)
	}
	if msg.From != "dispatch@truesource.com" {
		t.Errorf("From = %q, want bare address from display form", msg.From)
	}
	if msg.Subject != "New work order 12345" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.MessageID != "wo-12345@truesource.com" {
		t.Errorf("MessageID = %q", msg.MessageID)
	}
	if !strings.Contains(msg.Body, "Work Order: 12345") {
		t.Errorf("Body = %q, want the plain-text content", msg.Body)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("Attachments = %d, want 0", len(msg.Attachments))
	}
}

// TestParseMessage_MultipartWithAttachment verifies the body comes from the
// first text/plain part (not the html part) and the PDF attachment is
// captured with its filename, content type and bytes.
func TestParseMessage_MultipartWithAttachment(t *testing.T) {
	raw := crlf(`From: dispatch@truesource.com
To: workorders@paneworks.com
Subject: PO attached
Message-Id: <po-1@truesource.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="frontier"

--frontier
Content-Type: text/html

<p>See attached</p>
--frontier
Content-Type: text/plain

See attached purchase order.
--frontier
Content-Type: application/pdf
Content-Disposition: attachment; filename="VendorPO_12345.pdf"

%PDF-1.4 fake
--frontier--
`)

	msg, err := parseMessage(7, time.Now(), raw)
	if err != nil {
		t.Fatalf("parseMessage: %v", err)
	}

	if got := strings.TrimSpace(msg.Body); got != "See attached purchase order." {
		t.Errorf("Body = %q, want the text/plain part", got)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("Attachments = %d, want 1", len(msg.Attachments))
	}

	att := msg.Attachments[0]
	if att.Filename != "VendorPO_12345.pdf" {
		t.Errorf("Filename = %q", att.Filename)
	}
	if !strings.HasPrefix(att.ContentType, "application/pdf") {
		t.Errorf("ContentType = %q", att.ContentType)
	}
	if !strings.Contains(string(att.Data), "%PDF-1.4") {
		t.Errorf("Data = %q, want the attachment bytes", att.Data)
	}
}

// TestParseMessage_Malformed verifies an undecodable source surfaces an
// error instead of a half-empty message.
func TestParseMessage_Malformed(t *testing.T) {
	raw := crlf(`this is not an email at all

garbage body
`)

	if _, err := parseMessage(3, time.Now(), raw); err == nil {
		t.Fatal("expected error for malformed message source")
	}
}
