// Package s3 implements blob storage on Amazon S3 or S3-compatible services.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/clearwealth/filevault/pkg/blob"
)

// S3BlobStore implements blob.Store using Amazon S3 or S3-compatible storage.
//
// This implementation provides:
//   - Conditional writes (If-None-Match) so overwrite refusal is enforced
//     by S3 itself rather than by a racy exists-then-put check
//   - Batch deletes via the DeleteObjects API (up to 1000 keys per call)
//   - Presigned GET URLs for time-limited unauthenticated downloads
//
// Key Design:
// The blob.Key is used directly as the S3 object key (with optional prefix),
// so the bucket mirrors the per-owner key layout generated by the upload
// pipeline and stays human-inspectable.
//
// Thread Safety:
// Safe for concurrent use by multiple goroutines; the underlying S3 client
// is itself concurrency-safe.
type S3BlobStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	keyPrefix string
}

// S3BlobStoreConfig contains configuration for the S3 blob store.
type S3BlobStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name. Must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "vault/" results in keys like "vault/<owner>/<ts>_<name>"
	KeyPrefix string
}

// NewS3BlobStore creates a new S3-based blob store.
//
// This verifies bucket access with a HeadBucket call. The bucket must
// already exist - this function does not create it.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3BlobStore{
		client:    cfg.Client,
		presigner: s3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// objectKey returns the full S3 object key for a blob key.
func (s *S3BlobStore) objectKey(key blob.Key) string {
	if s.keyPrefix != "" {
		return s.keyPrefix + string(key)
	}
	return string(key)
}

// Put writes data under the given key using PutObject.
//
// With overwrite disabled the request carries If-None-Match: *, so S3
// rejects the write with 412 Precondition Failed when the key already
// holds an object. That maps to blob.ErrKeyExists.
func (s *S3BlobStore) Put(ctx context.Context, key blob.Key, data []byte, opts blob.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
	}

	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if !opts.AllowOverwrite {
		input.IfNoneMatch = aws.String("*")
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return fmt.Errorf("put %s: %w", key, blob.ErrKeyExists)
		}
		return fmt.Errorf("failed to put object to S3: %w", err)
	}

	return nil
}

// Exists checks blob existence with a HEAD request.
func (s *S3BlobStore) Exists(ctx context.Context, key blob.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// Delete removes the given blobs using the DeleteObjects batch API.
//
// S3 allows at most 1000 objects per delete request; larger batches are
// chunked automatically. Deleting an absent key succeeds (S3 semantics).
// Per-key failures land in the returned map; the error covers failures of
// a whole chunk or context cancellation.
func (s *S3BlobStore) Delete(ctx context.Context, keys []blob.Key) (map[blob.Key]error, error) {
	failures := make(map[blob.Key]error)

	const maxBatchSize = 1000

	for i := 0; i < len(keys); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(keys); j++ {
				failures[keys[j]] = err
			}
			return failures, err
		}

		end := i + maxBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{
				Key: aws.String(s.objectKey(key)),
			}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			for _, key := range batch {
				failures[key] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}

			// Strip the prefix to recover the blob key
			objKey := *deleteErr.Key
			if s.keyPrefix != "" && len(objKey) > len(s.keyPrefix) {
				objKey = objKey[len(s.keyPrefix):]
			}

			errMsg := "unknown error"
			if deleteErr.Code != nil && deleteErr.Message != nil {
				errMsg = fmt.Sprintf("%s: %s", *deleteErr.Code, *deleteErr.Message)
			}
			failures[blob.Key(objKey)] = errors.New(errMsg)
		}
	}

	return failures, nil
}

// List returns every blob key in the bucket under the configured prefix.
// Implements blob.Lister; the orphan collector uses it to enumerate stored
// blobs. Pagination is handled via ListObjectsV2.
func (s *S3BlobStore) List(ctx context.Context) ([]blob.Key, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.keyPrefix != "" {
		input.Prefix = aws.String(s.keyPrefix)
	}

	var keys []blob.Key

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			objKey := *obj.Key
			if s.keyPrefix != "" {
				objKey = strings.TrimPrefix(objKey, s.keyPrefix)
			}
			keys = append(keys, blob.Key(objKey))
		}
	}

	return keys, nil
}

// SignedURL issues a presigned GET URL valid for the given TTL.
//
// Each call presigns a fresh request; nothing is cached. Two URLs for the
// same key differ in their signature parameters but resolve to the same
// object within their validity windows.
func (s *S3BlobStore) SignedURL(ctx context.Context, key blob.Key, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}

	return request.URL, nil
}
