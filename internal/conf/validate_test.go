package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	settings := &Settings{}
	settings.Vision = VisionSettings{
		BaseURL:       "http://localhost:8000",
		Timeout:       300 * time.Second,
		HealthTimeout: 5 * time.Second,
		InfoTimeout:   10 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Second,
		MaxConcurrent: 5,
		Sensitivity:   50,
		Device:        -1,
		InputSize:     640,
	}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = "thermal.db"
	settings.WebServer.Enabled = true
	settings.WebServer.Port = "8080"
	return settings
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateVisionSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty base URL", func(s *Settings) { s.Vision.BaseURL = "" }},
		{"zero timeout", func(s *Settings) { s.Vision.Timeout = 0 }},
		{"negative retries", func(s *Settings) { s.Vision.MaxRetries = -1 }},
		{"zero concurrency", func(s *Settings) { s.Vision.MaxConcurrent = 0 }},
		{"sensitivity above range", func(s *Settings) { s.Vision.Sensitivity = 101 }},
		{"sensitivity below range", func(s *Settings) { s.Vision.Sensitivity = -1 }},
		{"device below -1", func(s *Settings) { s.Vision.Device = -2 }},
		{"input size too small", func(s *Settings) { s.Vision.InputSize = 100 }},
		{"input size too large", func(s *Settings) { s.Vision.InputSize = 2048 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settings := validSettings()
			tc.mutate(settings)
			err := ValidateSettings(settings)
			require.Error(t, err)
			assert.IsType(t, ValidationError{}, err)
		})
	}
}

func TestValidateOutputSettings(t *testing.T) {
	settings := validSettings()
	settings.Output.SQLite.Enabled = false
	err := ValidateSettings(settings)
	require.Error(t, err, "no database enabled")

	settings = validSettings()
	settings.Output.SQLite.Path = ""
	require.Error(t, ValidateSettings(settings), "SQLite without a path")

	settings = validSettings()
	settings.Output.SQLite.Enabled = false
	settings.Output.MySQL.Enabled = true
	settings.Output.MySQL.Host = "db.local"
	settings.Output.MySQL.Database = "thermal"
	require.NoError(t, ValidateSettings(settings))

	settings.Output.MySQL.Host = ""
	require.Error(t, ValidateSettings(settings), "MySQL without a host")
}

func TestValidateWebServerSettings(t *testing.T) {
	settings := validSettings()
	settings.WebServer.Port = "not-a-port"
	require.Error(t, ValidateSettings(settings))

	settings.WebServer.Port = "70000"
	require.Error(t, ValidateSettings(settings))

	// A disabled server skips port validation
	settings.WebServer.Enabled = false
	require.NoError(t, ValidateSettings(settings))
}
