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

// Package docanalysis extracts text from scanned PDFs via AWS Textract.
// The document is staged to a temporary S3 object, analyzed with table and
// form detection, and the staged object is deleted best-effort afterwards.
package docanalysis

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	textracttypes "github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/google/uuid"
)

// Client stages PDFs to S3 and runs Textract document analysis.
type Client struct {
	s3c      *s3.Client
	textract *textract.Client
	bucket   string
}

// New creates a document-analysis client using the default AWS credential
// chain. bucket is the temporary staging bucket for uploads.
func New(ctx context.Context, region, bucket string) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{
		s3c:      s3.NewFromConfig(awsCfg),
		textract: textract.NewFromConfig(awsCfg),
		bucket:   bucket,
	}, nil
}

// AnalyzeDocument uploads the PDF bytes to the staging bucket, runs Textract
// AnalyzeDocument with TABLES and FORMS, and returns the concatenated
// line-level text. The staged object is removed afterwards; a failed delete
// is logged, not fatal.
func (c *Client) AnalyzeDocument(ctx context.Context, pdfData []byte) (string, error) {
	key := fmt.Sprintf("ocr-staging/%s/%s.pdf",
		time.Now().UTC().Format("2006-01-02"), uuid.New().String())

	_, err := c.s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdfData),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("stage pdf to s3: %w", err)
	}

	defer func() {
		// Best-effort cleanup of the staged object.
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.s3c.DeleteObject(delCtx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		}); err != nil {
			slog.Warn("failed to delete staged OCR object",
				"bucket", c.bucket,
				"key", key,
				"error", err,
			)
		}
	}()

	out, err := c.textract.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document: &textracttypes.Document{
			S3Object: &textracttypes.S3Object{
				Bucket: aws.String(c.bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes: []textracttypes.FeatureType{
			textracttypes.FeatureTypeTables,
			textracttypes.FeatureTypeForms,
		},
	})
	if err != nil {
		return "", fmt.Errorf("textract analyze: %w", err)
	}

	var lines []string
	for _, block := range out.Blocks {
		if block.BlockType == textracttypes.BlockTypeLine && block.Text != nil {
			lines = append(lines, *block.Text)
		}
	}

	slog.Debug("document analysis complete",
		"key", key,
		"lines", len(lines),
	)

	return strings.Join(lines, "\n"), nil
}
