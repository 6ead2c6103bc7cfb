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

package review

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paneworks/ingestion/internal/models"
)

func sampleRecord() models.ReviewRecord {
	return models.ReviewRecord{
		QueuedAt:   time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Vendor:     "TrueSource",
		Sender:     "dispatch@truesource.com",
		Subject:    "New work order 12345",
		MessageID:  "<wo-12345@truesource.com>",
		Confidence: 0.5,
		Payload: models.WorkOrderPayload{
			WorkOrderNumber:    "12345",
			Customer:           "Acme Co",
			ProblemDescription: "Replace glass",
			BillingAddress:     "Billing address on file",
			Status:             models.StatusNeedsScheduling,
			Provenance:         "Ingested from TrueSource email <wo-12345@truesource.com> at 2026-08-28T12:00:00Z",
		},
		Fields: models.ExtractedFields{
			WorkOrderNumber:    "12345",
			Customer:           "Acme Co",
			ProblemDescription: "Replace glass",
		},
		Attempts: 1,
	}
}

// TestWriter_RoundTrip verifies a written record deserializes to payload
// fields byte-identical to the in-memory payload that produced it.
func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	rec := sampleRecord()
	path, err := w.Write(rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	var got models.ReviewRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}

	if got.Payload != rec.Payload {
		t.Errorf("payload round trip mismatch:\n got %+v\nwant %+v", got.Payload, rec.Payload)
	}
	if got.Vendor != rec.Vendor || got.MessageID != rec.MessageID || got.Confidence != rec.Confidence {
		t.Errorf("record round trip mismatch: %+v", got)
	}

	// Re-serializing the payload must be byte-identical.
	first, err := json.Marshal(rec.Payload)
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(got.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("payload serialization not byte-identical:\n%s\n%s", first, second)
	}
}

// TestWriter_FilenameCollisionSafe verifies two records written in the same
// second land in distinct artifacts.
func TestWriter_FilenameCollisionSafe(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	rec := sampleRecord()
	p1, err := w.Write(rec)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := w.Write(rec)
	if err != nil {
		t.Fatal(err)
	}

	if p1 == p2 {
		t.Errorf("paths collide: %s", p1)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("artifacts = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "review_20260828T120000Z_") {
			t.Errorf("unexpected artifact name %q", e.Name())
		}
	}
}

// TestNewWriter_CreatesDirectory verifies the review directory is created
// on demand.
func TestNewWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "review-queue")
	if _, err := NewWriter(dir); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("review dir not created: %v", err)
	}
}
