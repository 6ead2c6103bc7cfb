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

// Package vendors provides the static sender-domain allowlist that maps
// inbound email addresses to a vendor identity. Messages whose sender
// matches no entry never reach extraction or the CRM.
package vendors

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes one trusted vendor.
type Profile struct {
	Name string `yaml:"name"`
	// DomainSuffixes are matched case-insensitively against the sender's
	// domain, suffix-wise, so "truesource.com" also covers
	// "mail.truesource.com".
	DomainSuffixes []string `yaml:"domains"`
	// Strategy names the extraction strategy for this vendor. Empty or
	// unknown names fall back to the generic PDF/OCR strategy.
	Strategy string `yaml:"strategy"`
}

// Registry is the immutable vendor allowlist, loaded once at startup.
type Registry struct {
	profiles []Profile
}

// defaultProfiles are the vendors Paneworks receives work orders from today.
// A vendors.yaml file replaces this list entirely when provided.
var defaultProfiles = []Profile{
	{
		Name:           "TrueSource",
		DomainSuffixes: []string{"truesource.com", "truesourceusa.com"},
		Strategy:       "truesource",
	},
	{
		Name:           "ServiceChannel",
		DomainSuffixes: []string{"servicechannel.com"},
		Strategy:       "servicechannel",
	},
	{
		Name:           "SMS Assist",
		DomainSuffixes: []string{"smsassist.com"},
		Strategy:       "generic",
	},
}

// NewRegistry builds a registry from the builtin vendor list.
func NewRegistry() *Registry {
	return &Registry{profiles: defaultProfiles}
}

// LoadRegistry reads a vendors.yaml file (with ${VAR} expansion, matching
// the service config convention) and builds a registry from it. An empty
// path returns the builtin registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vendors file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw struct {
		Vendors []Profile `yaml:"vendors"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse vendors YAML: %w", err)
	}

	var profiles []Profile
	for _, p := range raw.Vendors {
		if p.Name == "" || len(p.DomainSuffixes) == 0 {
			continue
		}
		profiles = append(profiles, p)
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("no vendors configured in %s", path)
	}

	return &Registry{profiles: profiles}, nil
}

// Match resolves a sender email address to a vendor profile.
// Returns nil when the sender's domain is outside every allowlist entry.
func (r *Registry) Match(sender string) *Profile {
	domain := senderDomain(sender)
	if domain == "" {
		return nil
	}

	for i := range r.profiles {
		for _, suffix := range r.profiles[i].DomainSuffixes {
			s := strings.ToLower(strings.TrimPrefix(suffix, "@"))
			if domain == s || strings.HasSuffix(domain, "."+s) {
				return &r.profiles[i]
			}
		}
	}
	return nil
}

// Profiles returns the configured vendor list.
func (r *Registry) Profiles() []Profile {
	return r.profiles
}

// senderDomain extracts the lowercased domain from an address that may be
// bare ("a@b.com") or display-form ("Name <a@b.com>").
func senderDomain(sender string) string {
	addr := strings.TrimSpace(sender)
	if start := strings.LastIndex(addr, "<"); start >= 0 {
		addr = addr[start+1:]
		addr = strings.TrimSuffix(strings.TrimSpace(addr), ">")
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
