// config.go: settings struct and functions to load and save application settings.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// VisionSettings contains settings for the external vision analysis service.
type VisionSettings struct {
	BaseURL       string        // base URL of the vision analysis service
	Timeout       time.Duration // timeout for analysis calls, inference may take minutes
	HealthTimeout time.Duration // short timeout for health probes
	InfoTimeout   time.Duration // timeout for service info requests
	MaxRetries    int           // maximum retry attempts for transport failures
	RetryDelay    time.Duration // base delay between retry attempts
	MaxConcurrent int           // maximum concurrent analyses
	Sensitivity   int           // default sensitivity percentage 0-100
	Device        int           // default processing device, -1 CPU, >=0 accelerator index
	InputSize     int           // default model input image size in pixels
	HalfPrecision bool          // default half precision flag
}

// StorageSettings contains settings for resolving stored image references.
type StorageSettings struct {
	PublicBaseURL string        // base URL for building public image URLs from object keys
	URLCacheTTL   time.Duration // how long resolved image URLs are cached
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite
	Path    string // path to the SQLite database file
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings contains database output settings.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// WebServerSettings contains settings for the HTTP API server.
type WebServerSettings struct {
	Enabled bool   // true to start the API server
	Port    string // port to listen on
	LogPath string // path for API log files
}

// Settings holds the complete application configuration.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Name string // instance name, used in log identification
	}

	Vision    VisionSettings
	Storage   StorageSettings
	Output    OutputSettings
	WebServer WebServerSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Setting returns the global settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		settings, err := Load()
		if err != nil {
			log.Fatalf("Error loading settings: %v", err)
		}
		settingsInstance = settings
	})
	return GetSettings()
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Load reads the configuration file and environment variables into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Environment variables override file values, e.g. TM_VISION_BASEURL
	viper.SetEnvPrefix("TM")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default configuration to the first config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	defaults := map[string]any{}
	for _, key := range viper.AllKeys() {
		defaults[key] = viper.Get(key)
	}
	out, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	if err := os.WriteFile(configPath, out, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	log.Printf("Created default config file at %s", configPath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the list of paths searched for the config file.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	configPaths := []string{
		".",
		filepath.Join(homeDir, ".config", "transformer-monitoring"),
	}
	return configPaths, nil
}
