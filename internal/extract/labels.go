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
	"regexp"
	"strings"

	"github.com/paneworks/ingestion/internal/models"
)

// Field keys used by the label tables.
const (
	fieldWorkOrder   = "work_order_number"
	fieldPONumber    = "po_number"
	fieldCustomer    = "customer"
	fieldSiteAddress = "site_address"
	fieldSiteLoc     = "site_location"
	fieldProblem     = "problem_description"
	fieldNTE         = "not_to_exceed"
)

// baseLabels maps each field to the label synonyms vendors commonly use.
// Longer synonyms come first so the alternation prefers them.
var baseLabels = map[string][]string{
	fieldWorkOrder: {
		"work order number", "work order no", "work order #", "work order",
		"service request", "wo number", "wo #", "wo",
	},
	fieldPONumber: {
		"purchase order number", "purchase order #", "purchase order",
		"po number", "po #", "po",
	},
	fieldCustomer: {
		"customer name", "customer", "client name", "client",
		"store name", "location name",
	},
	fieldSiteAddress: {
		"site address", "service address", "location address", "address",
	},
	fieldSiteLoc: {
		"site location", "store number", "store #", "location #",
		"location id", "location", "site",
	},
	fieldProblem: {
		"description of work", "problem description", "work description",
		"scope of work", "description", "issue",
	},
	fieldNTE: {
		"not to exceed amount", "not to exceed", "nte amount",
		"do not exceed", "nte",
	},
}

// labelMatcher holds compiled per-field label patterns.
type labelMatcher struct {
	patterns map[string]*regexp.Regexp
}

// newLabelMatcher compiles a matcher for the base labels plus per-vendor
// extras. Extras are prepended so a vendor's preferred label wins.
func newLabelMatcher(extras map[string][]string) *labelMatcher {
	m := &labelMatcher{patterns: make(map[string]*regexp.Regexp, len(baseLabels))}
	for field, synonyms := range baseLabels {
		combined := append(append([]string{}, extras[field]...), synonyms...)
		quoted := make([]string, len(combined))
		for i, s := range combined {
			quoted[i] = regexp.QuoteMeta(s)
		}
		// Single-pass, line-anchored "Label: value" match. Deliberately
		// best-effort; this is pattern matching, not structured parsing.
		m.patterns[field] = regexp.MustCompile(
			`(?im)^[ \t>]*(?:` + strings.Join(quoted, "|") + `)[ \t]*:[ \t]*(\S.*?)[ \t]*$`,
		)
	}
	return m
}

// match runs every field pattern over the text. First match wins per field;
// a field with no match stays absent.
func (m *labelMatcher) match(text string) models.ExtractedFields {
	value := func(field string) string {
		groups := m.patterns[field].FindStringSubmatch(text)
		if groups == nil {
			return ""
		}
		return strings.TrimSpace(groups[1])
	}

	fields := models.ExtractedFields{
		WorkOrderNumber:    value(fieldWorkOrder),
		PONumber:           value(fieldPONumber),
		Customer:           value(fieldCustomer),
		SiteAddress:        value(fieldSiteAddress),
		SiteLocation:       value(fieldSiteLoc),
		ProblemDescription: value(fieldProblem),
		NotToExceedAmount:  value(fieldNTE),
	}

	if fields.SiteAddress == "" {
		fields.SiteAddress = matchAddressBlock(text)
	}

	return fields
}

var (
	// streetLine: a house number followed by a street-suffix token.
	streetLine = regexp.MustCompile(
		`(?i)^\s*\d+\s+.*\b(?:st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|ct|court|hwy|highway|pkwy|parkway|plaza|pl)\.?\b`,
	)
	// cityStateZipLine: "City, ST 12345" with an optional +4.
	cityStateZipLine = regexp.MustCompile(
		`^\s*[A-Za-z .'-]+,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?\s*$`,
	)
)

// matchAddressBlock finds a two-line postal address: a street line
// immediately followed by a "City, ST zip" line. Heuristic fallback for
// vendors that do not label the site address.
func matchAddressBlock(text string) string {
	lines := strings.Split(text, "\n")
	for i := 0; i+1 < len(lines); i++ {
		street := strings.TrimSpace(lines[i])
		cityStateZip := strings.TrimSpace(lines[i+1])
		if streetLine.MatchString(street) && cityStateZipLine.MatchString(cityStateZip) {
			return street + ", " + cityStateZip
		}
	}
	return ""
}
