// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateVisionSettings(&settings.Vision); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateVisionSettings validates the vision service client settings
func validateVisionSettings(settings *VisionSettings) error {
	var errs []string

	if settings.BaseURL == "" {
		errs = append(errs, "vision base URL must not be empty")
	}
	if settings.Timeout <= 0 {
		errs = append(errs, "vision timeout must be greater than 0")
	}
	if settings.MaxRetries < 0 {
		errs = append(errs, "vision max retries must not be negative")
	}
	if settings.MaxConcurrent < 1 {
		errs = append(errs, "vision max concurrent analyses must be at least 1")
	}
	if settings.Sensitivity < 0 || settings.Sensitivity > 100 {
		errs = append(errs, "vision sensitivity must be between 0 and 100")
	}
	if settings.Device < -1 {
		errs = append(errs, "vision device must be -1 (CPU) or a non-negative accelerator index")
	}
	if settings.InputSize < 224 || settings.InputSize > 1024 {
		errs = append(errs, "vision input size must be between 224 and 1024")
	}

	if len(errs) > 0 {
		return fmt.Errorf("vision settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateOutputSettings validates the database output settings
func validateOutputSettings(settings *OutputSettings) error {
	var errs []string

	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		errs = append(errs, "at least one database output must be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		errs = append(errs, "SQLite database path must not be empty")
	}
	if settings.MySQL.Enabled {
		if settings.MySQL.Host == "" {
			errs = append(errs, "MySQL host must not be empty")
		}
		if settings.MySQL.Database == "" {
			errs = append(errs, "MySQL database name must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("output settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateWebServerSettings validates the HTTP server settings
func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver port must be a number between 1 and 65535")
	}
	return nil
}
