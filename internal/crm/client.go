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

// Package crm is the HTTP client for the downstream CRM: identifier search
// for duplicate detection and multipart work-order creation.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/paneworks/ingestion/internal/models"
)

// Match is one existing CRM record returned by the duplicate search.
type Match struct {
	ID              string `json:"id"`
	WorkOrderNumber string `json:"work_order_number,omitempty"`
	PONumber        string `json:"po_number,omitempty"`
	Status          string `json:"status,omitempty"`
}

// SubmissionError is the typed failure for a rejected or unreachable create
// call. It carries the HTTP status and response body for the review record.
type SubmissionError struct {
	Status int
	Body   string
}

func (e *SubmissionError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("work order submission failed: %s", e.Body)
	}
	return fmt.Sprintf("work order submission failed: HTTP %d: %s", e.Status, e.Body)
}

// Client talks to the CRM HTTP API using a static bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a CRM client with a bounded request timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// FindDuplicates searches the CRM for records sharing either identifier.
// Both identifiers may be empty, in which case no search is performed.
//
// Fail-open: a network error or non-2xx response is reported as
// "no duplicates" so a transient search outage never blocks ingestion. The
// distinct log event below lets operators audit false negatives afterwards.
func (c *Client) FindDuplicates(ctx context.Context, workOrderNumber, poNumber string) []Match {
	if workOrderNumber == "" && poNumber == "" {
		return nil
	}

	params := url.Values{}
	if workOrderNumber != "" {
		params.Set("workOrderNumber", workOrderNumber)
	}
	if poNumber != "" {
		params.Set("poNumber", poNumber)
	}

	searchURL := fmt.Sprintf("%s/api/workorders/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		c.logFailOpen(workOrderNumber, poNumber, err)
		return nil
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logFailOpen(workOrderNumber, poNumber, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logFailOpen(workOrderNumber, poNumber,
			fmt.Errorf("search returned HTTP %d: %s", resp.StatusCode, string(body)))
		return nil
	}

	var result struct {
		Results []Match `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logFailOpen(workOrderNumber, poNumber, err)
		return nil
	}

	return result.Results
}

// logFailOpen emits the audit event for a duplicate check that failed open.
func (c *Client) logFailOpen(workOrderNumber, poNumber string, err error) {
	slog.Warn("duplicate check failed open, proceeding as no duplicates",
		"work_order_number", workOrderNumber,
		"po_number", poNumber,
		"error", err,
	)
}

// createResponse is the CRM's 2xx body for a created record.
type createResponse struct {
	ID string `json:"id"`
}

// CreateWorkOrder submits a multipart creation request: one form field per
// payload attribute plus the classified PDF attachment. Returns the created
// record's remote id, or a *SubmissionError the admission controller
// converts into a review-queue entry.
func (c *Client) CreateWorkOrder(ctx context.Context, payload models.WorkOrderPayload, attachment *models.Attachment, kind models.PDFKind) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"workOrderNumber":    payload.WorkOrderNumber,
		"poNumber":           payload.PONumber,
		"customer":           payload.Customer,
		"siteAddress":        payload.SiteAddress,
		"siteLocation":       payload.SiteLocation,
		"problemDescription": payload.ProblemDescription,
		"notToExceedAmount":  payload.NotToExceedAmount,
		"billingAddress":     payload.BillingAddress,
		"status":             payload.Status,
		"provenance":         payload.Provenance,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return "", fmt.Errorf("write multipart field %s: %w", name, err)
		}
	}

	if attachment != nil {
		partName := "attachment"
		if kind == models.PDFKindPO {
			partName = "poPdf"
		}
		part, err := w.CreateFormFile(partName, attachment.Filename)
		if err != nil {
			return "", fmt.Errorf("create multipart file part: %w", err)
		}
		if _, err := part.Write(attachment.Data); err != nil {
			return "", fmt.Errorf("write attachment bytes: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	createURL := fmt.Sprintf("%s/api/workorders", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, createURL, &buf)
	if err != nil {
		return "", fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &SubmissionError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &SubmissionError{Status: resp.StatusCode, Body: string(body)}
	}

	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", &SubmissionError{Status: resp.StatusCode, Body: "unparseable create response: " + err.Error()}
	}

	slog.Info("work order created in CRM",
		"remote_id", created.ID,
		"work_order_number", payload.WorkOrderNumber,
		"customer", payload.Customer,
	)

	return created.ID, nil
}
