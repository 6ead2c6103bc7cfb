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

package vendors

import (
	"os"
	"path/filepath"
	"testing"
)

// TestRegistry_Match verifies domain-suffix matching against the builtin
// allowlist.
func TestRegistry_Match(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		sender     string
		wantVendor string
	}{
		{"dispatch@truesource.com", "TrueSource"},
		{"DISPATCH@TRUESOURCE.COM", "TrueSource"},
		{"noreply@mail.truesource.com", "TrueSource"},
		{"Work Orders <wo@servicechannel.com>", "ServiceChannel"},
		{"alerts@smsassist.com", "SMS Assist"},
		{"spammer@nottruesource.com", ""},
		{"dispatch@truesource.com.evil.net", ""},
		{"not-an-address", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			profile := r.Match(tt.sender)
			got := ""
			if profile != nil {
				got = profile.Name
			}
			if got != tt.wantVendor {
				t.Errorf("Match(%q) = %q, want %q", tt.sender, got, tt.wantVendor)
			}
		})
	}
}

// TestLoadRegistry_YAML verifies vendors.yaml replaces the builtin list.
func TestLoadRegistry_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	yaml := `vendors:
  - name: Glassco Network
    domains: [glassco.net]
    strategy: generic
  - name: ""
    domains: [ignored.example]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	if len(r.Profiles()) != 1 {
		t.Fatalf("profiles = %d, want 1 (nameless entry skipped)", len(r.Profiles()))
	}
	if p := r.Match("wo@glassco.net"); p == nil || p.Name != "Glassco Network" {
		t.Errorf("Match(wo@glassco.net) = %+v", p)
	}
	if p := r.Match("dispatch@truesource.com"); p != nil {
		t.Errorf("builtin vendor still matched after YAML replacement: %+v", p)
	}
}

// TestLoadRegistry_EmptyPathUsesBuiltins verifies the default registry is
// returned when no path is configured.
func TestLoadRegistry_EmptyPathUsesBuiltins(t *testing.T) {
	r, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry(\"\"): %v", err)
	}
	if len(r.Profiles()) == 0 {
		t.Fatal("builtin registry is empty")
	}
}

// TestLoadRegistry_NoVendors verifies an empty vendor list is rejected.
func TestLoadRegistry_NoVendors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	if err := os.WriteFile(path, []byte("vendors: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRegistry(path); err == nil {
		t.Error("expected error for empty vendor list")
	}
}
