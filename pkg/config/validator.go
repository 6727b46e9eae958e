package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate OCR config
	if c.OCR.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "ocr.api_key",
			Message: "Mistral API key is required",
		})
	}

	if c.OCR.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "ocr.base_url",
			Message: "OCR base URL is required",
		})
	} else if parsed, err := url.Parse(c.OCR.BaseURL); err != nil || parsed.Scheme == "" {
		errors = append(errors, ValidationError{
			Field:   "ocr.base_url",
			Message: "invalid OCR base URL",
		})
	}

	if c.OCR.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "ocr.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.OCR.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "ocr.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if !strings.HasPrefix(c.Database.URL, "postgres://") &&
			!strings.HasPrefix(c.Database.URL, "postgresql://") {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate UI config
	if c.UI.Theme != "" && c.UI.Theme != "light" && c.UI.Theme != "dark" {
		errors = append(errors, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("theme must be light or dark, got %s", c.UI.Theme),
		})
	}

	return errors
}
