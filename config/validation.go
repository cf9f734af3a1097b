package config

import "fmt"

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that everything the service cannot run without is set.
func Validate(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return ValidationError{Field: "JWT_SECRET", Message: "must be set"}
	}
	if cfg.DBUser == "" {
		return ValidationError{Field: "DB_USER", Message: "must be set"}
	}
	if cfg.DBName == "" {
		return ValidationError{Field: "DB_NAME", Message: "must be set"}
	}
	if cfg.ServerPort == "" {
		return ValidationError{Field: "SERVER_PORT", Message: "must be set"}
	}
	if cfg.S3Bucket == "" && cfg.MediaDir == "" {
		return ValidationError{Field: "MEDIA_DIR", Message: "either MEDIA_DIR or S3_BUCKET must be set"}
	}
	return nil
}
