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
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/paneworks/ingestion/internal/models"
)

// parseMessage converts a raw RFC 5322 message into an InboundMessage:
// sender, subject, first text/plain part as the body, attachments in order.
func parseMessage(uid uint32, internalDate time.Time, raw []byte) (models.InboundMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return models.InboundMessage{}, fmt.Errorf("open mail reader: %w", err)
	}

	msg := models.InboundMessage{
		UID:        uid,
		ReceivedAt: internalDate,
	}

	msg.Subject, _ = mr.Header.Subject()
	msg.MessageID, _ = mr.Header.MessageID()

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever parts were already decoded.
			slog.Warn("failed to read mime part, continuing",
				"uid", uid,
				"error", err,
			)
			break
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			if msg.Body == "" && strings.HasPrefix(contentType, "text/plain") {
				body, err := io.ReadAll(part.Body)
				if err != nil {
					slog.Warn("failed to read text body", "uid", uid, "error", err)
					continue
				}
				msg.Body = string(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			contentType, _, _ := header.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				slog.Warn("failed to read attachment",
					"uid", uid,
					"filename", filename,
					"error", err,
				)
				continue
			}
			msg.Attachments = append(msg.Attachments, models.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Data:        data,
			})
		}
	}

	return msg, nil
}
