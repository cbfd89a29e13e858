package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidBlobType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Blob.Type = "gcs"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unsupported blob type")
	}
}

func TestValidate_InvalidMetadataType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metadata.Type = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unsupported metadata type")
	}
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Blob.Type = "s3"
	cfg.Blob.S3 = map[string]any{"region": "eu-west-1"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for S3 config without bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestValidate_S3WithBucketPasses(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Blob.Type = "s3"
	cfg.Blob.S3 = map[string]any{"region": "eu-west-1", "bucket": "client-documents"}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected S3 config with bucket to pass, got: %v", err)
	}
}

func TestValidate_BadgerRequiresPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metadata.Type = "badger"
	cfg.Metadata.Badger = map[string]any{}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for badger config without path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestValidate_BadgerInMemoryNeedsNoPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metadata.Type = "badger"
	cfg.Metadata.Badger = map[string]any{"in_memory": true}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected in-memory badger config to pass, got: %v", err)
	}
}

func TestValidate_NegativeUploadLimits(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Upload.MaxFiles = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for negative max_files")
	}
}

func TestValidate_NegativeParallelism(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Upload.Parallelism = -2

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for negative parallelism")
	}
}
