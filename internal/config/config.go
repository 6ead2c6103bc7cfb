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

// Package config loads pipeline configuration from environment variables.
// Missing mail credentials or a missing CRM token are the only fatal
// conditions; everything else has a default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ingestion pipeline.
type Config struct {
	// Mailbox
	MailHost     string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFolder   string

	// CRM
	CRMBaseURL string
	CRMToken   string

	// OCR staging (empty bucket disables the document-analysis fallback)
	OCRBucket string
	AWSRegion string

	// Poll loop
	PollInterval time.Duration
	PollLookback time.Duration

	// Admission
	DryRun              bool
	ConfidenceThreshold float64

	// Review queue
	ReviewDir string

	// Optional vendor registry overrides
	VendorsPath string

	// Optional stores (empty disables)
	DatabaseURL string
	RedisURL    string
}

// Load reads configuration from the environment. It returns an error for
// missing required credentials so the caller can exit non-zero at startup.
func Load() (*Config, error) {
	cfg := &Config{
		MailHost:            envOrDefault("MAIL_HOST", "localhost"),
		MailPort:            envOrDefaultInt("MAIL_PORT", 993),
		MailUsername:        os.Getenv("MAIL_USERNAME"),
		MailPassword:        os.Getenv("MAIL_PASSWORD"),
		MailFolder:          envOrDefault("MAIL_FOLDER", "INBOX"),
		CRMBaseURL:          envOrDefault("CRM_BASE_URL", "http://localhost:8080"),
		CRMToken:            os.Getenv("CRM_TOKEN"),
		OCRBucket:           os.Getenv("OCR_BUCKET"),
		AWSRegion:           envOrDefault("AWS_REGION", "us-east-1"),
		PollInterval:        envOrDefaultDuration("POLL_INTERVAL", 60*time.Second),
		PollLookback:        envOrDefaultDuration("POLL_LOOKBACK", time.Hour),
		DryRun:              envOrDefaultBool("DRY_RUN", false),
		ConfidenceThreshold: envOrDefaultFloat("CONFIDENCE_THRESHOLD", 0.75),
		ReviewDir:           envOrDefault("REVIEW_DIR", "./review-queue"),
		VendorsPath:         os.Getenv("VENDORS_PATH"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
	}

	if cfg.MailUsername == "" || cfg.MailPassword == "" {
		return nil, fmt.Errorf("MAIL_USERNAME and MAIL_PASSWORD are required")
	}
	if cfg.CRMToken == "" {
		return nil, fmt.Errorf("CRM_TOKEN is required")
	}

	// Clamp the threshold into [0, 1]
	if cfg.ConfidenceThreshold < 0 {
		cfg.ConfidenceThreshold = 0
	}
	if cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = 1
	}

	// Floor the poll timings; a zero or negative interval breaks the ticker
	if cfg.PollInterval < time.Second {
		cfg.PollInterval = time.Second
	}
	if cfg.PollLookback <= 0 {
		cfg.PollLookback = time.Hour
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are treated as seconds for operator convenience
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
