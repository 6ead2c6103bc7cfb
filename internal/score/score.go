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

// Package score computes the extraction completeness ratio used as the
// admission gate. This is a field-count heuristic, not a learned estimate.
package score

import "github.com/paneworks/ingestion/internal/models"

// strongFieldCount is the number of fields that individually contribute to
// the score: customer, site address, problem description.
const strongFieldCount = 3

// Confidence returns a completeness ratio in [0, 1]:
//
//	(populated strong fields + 1 if either identifier is present) / (3 + 1)
//
// Pure and deterministic; no I/O.
func Confidence(f models.ExtractedFields) float64 {
	populated := 0
	if f.Customer != "" {
		populated++
	}
	if f.SiteAddress != "" {
		populated++
	}
	if f.ProblemDescription != "" {
		populated++
	}
	if f.HasIdentifier() {
		populated++
	}
	return float64(populated) / float64(strongFieldCount+1)
}
