package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/tariff"
)

// S3ClientConfig holds configuration for S3Source
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string // key prefix the us/hts/... tree lives under
	UsePathStyle    bool
}

// S3API is the part of the S3 client S3Source uses.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads snapshot CSV files from S3-compatible storage (e.g., RustFS, MinIO)
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

var _ tariff.Source = (*S3Source)(nil)

// NewS3Source creates a new S3Source with the given configuration
func NewS3Source(ctx context.Context, cfg S3ClientConfig) (*S3Source, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(customResolver),
	}
	// Without static keys the default credential chain applies.
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3SourceWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3SourceWithClient wraps an existing client.
func NewS3SourceWithClient(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Source) snapshotPrefix(snapshotID domain.SnapshotID) string {
	return path.Join(s.prefix, tariff.SnapshotPrefix(snapshotID)) + "/"
}

// List returns the names of the CSV objects directly under the snapshot's
// csv/ prefix, sorted.
func (s *S3Source) List(ctx context.Context, snapshotID domain.SnapshotID) ([]string, error) {
	if err := domain.ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	prefix := s.snapshotPrefix(snapshotID)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") || !strings.HasSuffix(name, ".csv") {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Open streams one CSV object. The caller closes the body.
func (s *S3Source) Open(ctx context.Context, snapshotID domain.SnapshotID, name string) (io.ReadCloser, error) {
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid snapshot file name %q", name)
	}
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.snapshotPrefix(snapshotID) + name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return output.Body, nil
}
