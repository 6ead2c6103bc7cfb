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

// Package review persists snapshots of messages the pipeline declined to
// auto-create. Artifacts are append-only JSON files; review and remediation
// happen externally, so no read or update path exists here.
package review

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/paneworks/ingestion/internal/models"
)

// Writer serializes review records into a designated directory.
type Writer struct {
	dir string
}

// NewWriter creates the review directory if needed and returns a writer.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create review directory %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Write persists one review record and returns the artifact path. Filenames
// combine a UTC timestamp with a random suffix to avoid collisions.
func (w *Writer) Write(rec models.ReviewRecord) (string, error) {
	name := fmt.Sprintf("review_%s_%s.json",
		rec.QueuedAt.UTC().Format("20060102T150405Z"),
		uuid.New().String()[:8],
	)
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal review record: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write review record %s: %w", path, err)
	}

	slog.Info("review record written",
		"path", path,
		"vendor", rec.Vendor,
		"message_id", rec.MessageID,
		"confidence", rec.Confidence,
	)

	return path, nil
}
