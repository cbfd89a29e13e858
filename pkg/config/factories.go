package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/clearwealth/filevault/internal/logger"
	"github.com/clearwealth/filevault/pkg/blob"
	blobMemory "github.com/clearwealth/filevault/pkg/blob/memory"
	blobS3 "github.com/clearwealth/filevault/pkg/blob/s3"
	"github.com/clearwealth/filevault/pkg/metadata"
	metadataBadger "github.com/clearwealth/filevault/pkg/metadata/badger"
	metadataMemory "github.com/clearwealth/filevault/pkg/metadata/memory"
	"github.com/mitchellh/mapstructure"
)

// CreateBlobStore creates a blob store based on configuration.
//
// The Type field selects the backend; the matching options map is decoded
// into the backend's config struct and passed to its constructor.
//
// Supported types:
//   - "s3": Amazon S3 or compatible storage (MinIO, Localstack)
//   - "memory": in-memory storage, ephemeral
func CreateBlobStore(ctx context.Context, cfg *BlobConfig) (blob.Store, error) {
	switch cfg.Type {
	case "s3":
		return createS3BlobStore(ctx, cfg.S3)
	case "memory":
		return blobMemory.NewMemoryBlobStore(ctx)
	default:
		return nil, fmt.Errorf("unknown blob store type: %q (supported: s3, memory)", cfg.Type)
	}
}

// createS3BlobStore creates an S3-based blob store.
func createS3BlobStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	type S3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var opts S3Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 blob store config: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 blob store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Custom endpoint for S3-compatible storage (MinIO, Localstack, ...)
	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default chain
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := blobS3.NewS3BlobStore(ctx, blobS3.S3BlobStoreConfig{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 blob store: %w", err)
	}

	logger.Info("S3 blob store initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)

	return store, nil
}

// CreateMetadataStore creates a metadata store based on configuration.
//
// Supported types:
//   - "badger": BadgerDB storage, persistent
//   - "memory": in-memory storage, ephemeral
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	case "memory":
		return metadataMemory.NewMemoryMetadataStore(), nil
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: badger, memory)", cfg.Type)
	}
}

// createBadgerMetadataStore creates a BadgerDB-backed metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	type BadgerOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts BadgerOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
	}

	store, err := metadataBadger.NewBadgerMetadataStore(ctx, metadataBadger.BadgerMetadataStoreConfig{
		Path:     opts.Path,
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}

	logger.Info("badger metadata store initialized: path=%s in_memory=%v", opts.Path, opts.InMemory)

	return store, nil
}
