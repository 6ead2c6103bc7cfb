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

// Package mailbox wraps the IMAP transport behind the four primitives the
// pipeline needs (open, search unseen-since, fetch source, mark seen) and
// runs the sequential poll loop that drives admission.
package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/paneworks/ingestion/internal/models"
)

// Mailbox is the transport contract the poller drives. Implemented by
// Client; tests substitute a fake.
type Mailbox interface {
	// FetchUnseen returns unseen messages received since the given time,
	// in mailbox-delivery order.
	FetchUnseen(ctx context.Context, since time.Time) ([]models.InboundMessage, error)
	// MarkSeen sets the seen flag on one message. Called exactly once per
	// message, after its terminal decision, success or failure.
	MarkSeen(ctx context.Context, uid uint32) error
}

// Client is the IMAP implementation of Mailbox.
type Client struct {
	imap   *imapclient.Client
	folder string
}

// Dial connects to the IMAP server over TLS, authenticates, and selects the
// mailbox folder. An authentication failure here is the pipeline's only
// startup-fatal condition; the caller exits non-zero.
func Dial(host string, port int, username, password, folder string) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	c, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := c.Login(username, password).Wait(); err != nil {
		c.Close()
		return nil, fmt.Errorf("imap login as %s: %w", username, err)
	}

	if _, err := c.Select(folder, nil).Wait(); err != nil {
		c.Close()
		return nil, fmt.Errorf("select folder %s: %w", folder, err)
	}

	slog.Info("mailbox opened",
		"host", host,
		"user", username,
		"folder", folder,
	)

	return &Client{imap: c, folder: folder}, nil
}

// FetchUnseen searches for unseen messages received since the given time
// and fetches each full message source.
func (c *Client) FetchUnseen(_ context.Context, since time.Time) ([]models.InboundMessage, error) {
	criteria := &imap.SearchCriteria{
		Since:   since,
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	data, err := c.imap.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search unseen since %s: %w", since.Format(time.RFC3339), err)
	}

	uids := data.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	fetchOptions := &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{{}},
	}

	buffers, err := c.imap.Fetch(imap.UIDSetNum(uids...), fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch %d messages: %w", len(uids), err)
	}

	messages := make([]models.InboundMessage, 0, len(buffers))
	for _, buf := range buffers {
		raw := buf.FindBodySection(&imap.FetchItemBodySection{})
		if raw == nil {
			slog.Warn("message fetch returned no body section", "uid", buf.UID)
			continue
		}

		msg, err := parseMessage(uint32(buf.UID), buf.InternalDate, raw)
		if err != nil {
			// An undecodable source still needs a terminal decision and the
			// seen flag, or the same UID re-enters every poll until it ages
			// out of the lookback window. Hand it to the poller tagged.
			slog.Error("failed to parse message source",
				"uid", buf.UID,
				"error", err,
			)
			messages = append(messages, models.InboundMessage{
				UID:        uint32(buf.UID),
				ReceivedAt: buf.InternalDate,
				ParseError: err.Error(),
			})
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// MarkSeen sets the \Seen flag on one message.
func (c *Client) MarkSeen(_ context.Context, uid uint32) error {
	storeFlags := &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}
	if err := c.imap.Store(imap.UIDSetNum(imap.UID(uid)), storeFlags, nil).Close(); err != nil {
		return fmt.Errorf("mark seen uid %d: %w", uid, err)
	}
	return nil
}

// Close logs out and drops the connection.
func (c *Client) Close() error {
	if err := c.imap.Logout().Wait(); err != nil {
		return c.imap.Close()
	}
	return nil
}
