// Package config loads settings from a JSON file, environment variables
// and command-line flags, in increasing order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the email-to-calendar pipeline.
type Config struct {
	CredentialsPath string `json:"credentials_path,omitempty"` // Google OAuth client credentials JSON
	TokenPath       string `json:"token_path,omitempty"`       // OAuth token cache

	CalendarType    string `json:"calendar_type,omitempty"` // "google" or "ics"
	CalendarName    string `json:"calendar_name,omitempty"` // Name of the calendar to create/use
	CalendarColorID string `json:"calendar_color_id,omitempty"`
	ICSPath         string `json:"ics_path,omitempty"` // Destination file for the ics type

	Timezone   string `json:"timezone,omitempty"`    // IANA zone applied to timed events
	GmailQuery string `json:"gmail_query,omitempty"` // Gmail search expression
	MaxResults int64  `json:"max_results,omitempty"` // Messages fetched per run

	ConflictPolicy  string `json:"conflict_policy,omitempty"`  // keep-old, keep-new, keep-both or ask
	DefaultDuration bool   `json:"default_duration,omitempty"` // 1-hour default for lone morning start times
	SeenPath        string `json:"seen_path,omitempty"`        // Processed-message bookkeeping file

	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Enables the LLM title/location polish
	GeminiModel  string `json:"gemini_model,omitempty"`
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to
// lowest):
// 1. Command-line flags (the non-zero fields of flags)
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any required value is missing.
func LoadConfig(configFile string, flags Config) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	applyString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	applyString("CLEO_CREDENTIALS_PATH", &config.CredentialsPath)
	applyString("CLEO_TOKEN_PATH", &config.TokenPath)
	applyString("CLEO_CALENDAR_TYPE", &config.CalendarType)
	applyString("CLEO_CALENDAR_NAME", &config.CalendarName)
	applyString("CLEO_CALENDAR_COLOR_ID", &config.CalendarColorID)
	applyString("CLEO_ICS_PATH", &config.ICSPath)
	applyString("CLEO_TIMEZONE", &config.Timezone)
	applyString("CLEO_GMAIL_QUERY", &config.GmailQuery)
	applyString("CLEO_CONFLICT_POLICY", &config.ConflictPolicy)
	applyString("CLEO_SEEN_PATH", &config.SeenPath)
	applyString("CLEO_GEMINI_API_KEY", &config.GeminiAPIKey)
	applyString("CLEO_GEMINI_MODEL", &config.GeminiModel)

	if v := os.Getenv("CLEO_MAX_RESULTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CLEO_MAX_RESULTS value: %w", err)
		}
		config.MaxResults = n
	}
	if v := os.Getenv("CLEO_DEFAULT_DURATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CLEO_DEFAULT_DURATION value: %w", err)
		}
		config.DefaultDuration = b
	}

	// Step 3: Override with command-line flags (highest priority)
	if flags.CredentialsPath != "" {
		config.CredentialsPath = flags.CredentialsPath
	}
	if flags.TokenPath != "" {
		config.TokenPath = flags.TokenPath
	}
	if flags.CalendarType != "" {
		config.CalendarType = flags.CalendarType
	}
	if flags.CalendarName != "" {
		config.CalendarName = flags.CalendarName
	}
	if flags.CalendarColorID != "" {
		config.CalendarColorID = flags.CalendarColorID
	}
	if flags.ICSPath != "" {
		config.ICSPath = flags.ICSPath
	}
	if flags.Timezone != "" {
		config.Timezone = flags.Timezone
	}
	if flags.GmailQuery != "" {
		config.GmailQuery = flags.GmailQuery
	}
	if flags.MaxResults != 0 {
		config.MaxResults = flags.MaxResults
	}
	if flags.ConflictPolicy != "" {
		config.ConflictPolicy = flags.ConflictPolicy
	}
	if flags.DefaultDuration {
		config.DefaultDuration = true
	}
	if flags.SeenPath != "" {
		config.SeenPath = flags.SeenPath
	}
	if flags.GeminiAPIKey != "" {
		config.GeminiAPIKey = flags.GeminiAPIKey
	}
	if flags.GeminiModel != "" {
		config.GeminiModel = flags.GeminiModel
	}

	// Step 4: Apply defaults and validate required fields
	if config.CalendarType == "" {
		config.CalendarType = "google"
	}
	if config.CalendarType != "google" && config.CalendarType != "ics" {
		return nil, fmt.Errorf("calendar_type must be 'google' or 'ics', got '%s'", config.CalendarType)
	}
	if config.CalendarType == "ics" && config.ICSPath == "" {
		return nil, fmt.Errorf("ics_path must be provided for the ics calendar type")
	}
	if config.CredentialsPath == "" {
		return nil, fmt.Errorf("credentials_path must be provided via --credentials flag, CLEO_CREDENTIALS_PATH environment variable, or config file")
	}

	if config.TokenPath == "" {
		config.TokenPath = "token.json"
	}
	if config.CalendarName == "" {
		config.CalendarName = "CLEO"
	}
	if config.CalendarColorID == "" {
		config.CalendarColorID = "7"
	}
	if config.Timezone == "" {
		config.Timezone = "Asia/Kolkata"
	}
	if config.GmailQuery == "" {
		config.GmailQuery = "newer_than:2d"
	}
	if config.MaxResults == 0 {
		config.MaxResults = 25
	}
	if config.ConflictPolicy == "" {
		config.ConflictPolicy = "ask"
	}
	if config.SeenPath == "" {
		config.SeenPath = "seen.json"
	}
	if config.GeminiModel == "" {
		config.GeminiModel = "gemini-2.0-flash"
	}

	return &config, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
