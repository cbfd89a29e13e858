package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover the declarative rules (required fields, enums,
// ranges); custom rules cover the cross-field checks tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The S3 backend needs a bucket; catching it here beats a late
	// factory failure with a worse message.
	if cfg.Blob.Type == "s3" {
		bucket, _ := cfg.Blob.S3["bucket"].(string)
		if bucket == "" {
			return fmt.Errorf("blob.s3: bucket is required when blob.type is s3")
		}
	}

	// The badger backend needs a path unless explicitly in-memory.
	if cfg.Metadata.Type == "badger" {
		path, _ := cfg.Metadata.Badger["path"].(string)
		inMemory, _ := cfg.Metadata.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("metadata.badger: path is required when metadata.type is badger")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
