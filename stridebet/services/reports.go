// Package services holds the supporting surfaces around the core ledger:
// settlement report archival and challenge search.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/stridebet/stridebet/stridebet/settlement"
)

// ReportService uploads settlement reports to S3-compatible object storage.
type ReportService struct {
	client     *s3.Client
	bucket     string
	region     string
	ReportRoot string
}

func NewReportService(spacesKey, spacesSecret, region, bucket, reportRoot string) (*ReportService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	return &ReportService{
		client:     s3.NewFromConfig(cfg),
		bucket:     bucket,
		region:     region,
		ReportRoot: strings.TrimPrefix(reportRoot, "/"),
	}, nil
}

// ArchiveSettlement uploads one settlement report as JSON. The key embeds
// the settlement timestamp so re-settled reconciliation runs never clobber
// the original record.
func (s *ReportService) ArchiveSettlement(ctx context.Context, report *settlement.Report) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settlement report: %w", err)
	}

	key := fmt.Sprintf("%s/challenge-%d/%s.json",
		s.ReportRoot,
		report.ChallengeID,
		report.SettledAt.UTC().Format("20060102T150405Z"),
	)
	contentType := "application/json"

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload settlement report: %w", err)
	}

	logger.LogSystem("settlement report archived",
		"challenge", report.ChallengeID,
		"key", key,
	)
	return nil
}

func (s *ReportService) GetBucket() string {
	return s.bucket
}

func (s *ReportService) GetRegion() string {
	return s.region
}
