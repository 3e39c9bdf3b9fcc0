package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
	Weather   WeatherConfig   `json:"weather"`
	Plant     PlantConfig     `json:"plant"`
	Assistant AssistantConfig `json:"assistant"`
	Voice     VoiceConfig     `json:"voice"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Auth      AuthConfig      `json:"auth"`
	Storage   StorageConfig   `json:"storage"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	Port        int    `json:"port"`
	BindAddress string `json:"bind_address"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level        string `json:"level"`         // "debug", "info", "warn", "error"
	DebugEnabled bool   `json:"debug_enabled"` // Enable debug file logging
	File         string `json:"file"`          // Debug log file path
	MaxSizeMB    int    `json:"max_size_mb"`   // Max file size before rotation
	MaxBackups   int    `json:"max_backups"`   // Number of backup files to keep
}

// WeatherConfig configures the weather providers
type WeatherConfig struct {
	APIKey      string `json:"api_key"`      // Keyed metric-forecast provider; empty skips it
	APIEndpoint string `json:"api_endpoint"` // Override for testing
	FreeURL     string `json:"free_url"`     // Free-text weather endpoint base
	TimeoutSecs int    `json:"timeout_secs"` // Per-provider attempt timeout
}

// PlantConfig configures the plant-identification providers
type PlantConfig struct {
	APIKey      string `json:"api_key"`      // Keyed identification+health provider
	APIEndpoint string `json:"api_endpoint"` // Override for testing
	FreeURL     string `json:"free_url"`     // Free public identification endpoint
	TimeoutSecs int    `json:"timeout_secs"`
}

// AssistantConfig configures the conversational-AI providers
type AssistantConfig struct {
	GenerativeKey      string `json:"generative_key"`      // Keyed generative-text provider
	GenerativeEndpoint string `json:"generative_endpoint"` // Override for testing
	GenerativeModel    string `json:"generative_model"`
	DialogueKey        string `json:"dialogue_key"` // Keyed open dialogue model provider
	DialogueURL        string `json:"dialogue_url"`
	TimeoutSecs        int    `json:"timeout_secs"`
}

// VoiceConfig configures speech recognition and synthesis
type VoiceConfig struct {
	TranscribeKey      string `json:"transcribe_key"` // Speech-to-text provider key
	TranscribeURL      string `json:"transcribe_url"`
	TranscribeModel    string `json:"transcribe_model"`
	PremiumTTSKey      string `json:"premium_tts_key"` // High-quality external voice provider
	PremiumTTSURL      string `json:"premium_tts_url"`
	SynthEndpoint      string `json:"synth_endpoint"` // Local synthesis server (host:port)
	InactivitySecs     int    `json:"inactivity_secs"`
	ContinuousSessions bool   `json:"continuous_sessions"` // Loop back to listening after speaking
	TimeoutSecs        int    `json:"timeout_secs"`
}

// KnowledgeConfig controls farming-guide ingestion
type KnowledgeConfig struct {
	Folders       []string `json:"folders"`        // Watched guide folders
	MaxFileSizeMB int      `json:"max_file_size_mb"`
	AllowedExts   []string `json:"allowed_exts"`
}

// AuthConfig controls authentication behavior
type AuthConfig struct {
	Enabled           bool   `json:"enabled"`
	AdminUser         string `json:"admin_user"`
	AdminPassword     string `json:"admin_password"` // Used once to seed the admin account
	SessionExpiryDays int    `json:"session_expiry_days"`
}

// StorageConfig controls persistence locations
type StorageConfig struct {
	DatabasePath    string `json:"database_path"`
	PreferencesPath string `json:"preferences_path"`
}

// Load reads configuration from file and environment. A missing file is
// replaced with a default one.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg = &fileCfg
		cfg.applyDefaults()
	} else {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			BindAddress: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level:        "info",
			DebugEnabled: true,
			File:         "farmhand.log",
			MaxSizeMB:    10,
			MaxBackups:   3,
		},
		Weather: WeatherConfig{
			FreeURL:     "https://wttr.in",
			TimeoutSecs: 10,
		},
		Plant: PlantConfig{
			FreeURL:     "https://my-api.plantnet.org/v2/identify/weurope",
			TimeoutSecs: 15,
		},
		Assistant: AssistantConfig{
			GenerativeModel: "gemini-2.5-flash",
			DialogueURL:     "https://api-inference.huggingface.co/models/microsoft/DialoGPT-medium",
			TimeoutSecs:     20,
		},
		Voice: VoiceConfig{
			TranscribeURL:      "https://api.openai.com/v1/audio/transcriptions",
			TranscribeModel:    "whisper-1",
			PremiumTTSURL:      "https://api.elevenlabs.io/v1/text-to-speech",
			InactivitySecs:     45,
			ContinuousSessions: false,
			TimeoutSecs:        30,
		},
		Knowledge: KnowledgeConfig{
			Folders:       []string{},
			MaxFileSizeMB: 10,
			AllowedExts:   []string{".txt", ".md", ".html"},
		},
		Auth: AuthConfig{
			Enabled:           false,
			SessionExpiryDays: 7,
		},
		Storage: StorageConfig{
			DatabasePath:    "farmhand.db",
			PreferencesPath: "preferences.json",
		},
	}
}

// applyDefaults fills fields a hand-edited config file may have dropped
func (c *Config) applyDefaults() {
	def := defaultConfig()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.BindAddress == "" {
		c.Server.BindAddress = def.Server.BindAddress
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.File == "" {
		c.Logging.File = def.Logging.File
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = def.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = def.Logging.MaxBackups
	}
	if c.Weather.FreeURL == "" {
		c.Weather.FreeURL = def.Weather.FreeURL
	}
	if c.Weather.TimeoutSecs == 0 {
		c.Weather.TimeoutSecs = def.Weather.TimeoutSecs
	}
	if c.Plant.FreeURL == "" {
		c.Plant.FreeURL = def.Plant.FreeURL
	}
	if c.Plant.TimeoutSecs == 0 {
		c.Plant.TimeoutSecs = def.Plant.TimeoutSecs
	}
	if c.Assistant.GenerativeModel == "" {
		c.Assistant.GenerativeModel = def.Assistant.GenerativeModel
	}
	if c.Assistant.DialogueURL == "" {
		c.Assistant.DialogueURL = def.Assistant.DialogueURL
	}
	if c.Assistant.TimeoutSecs == 0 {
		c.Assistant.TimeoutSecs = def.Assistant.TimeoutSecs
	}
	if c.Voice.TranscribeURL == "" {
		c.Voice.TranscribeURL = def.Voice.TranscribeURL
	}
	if c.Voice.TranscribeModel == "" {
		c.Voice.TranscribeModel = def.Voice.TranscribeModel
	}
	if c.Voice.PremiumTTSURL == "" {
		c.Voice.PremiumTTSURL = def.Voice.PremiumTTSURL
	}
	if c.Voice.InactivitySecs == 0 {
		c.Voice.InactivitySecs = def.Voice.InactivitySecs
	}
	if c.Voice.TimeoutSecs == 0 {
		c.Voice.TimeoutSecs = def.Voice.TimeoutSecs
	}
	if c.Knowledge.MaxFileSizeMB == 0 {
		c.Knowledge.MaxFileSizeMB = def.Knowledge.MaxFileSizeMB
	}
	if len(c.Knowledge.AllowedExts) == 0 {
		c.Knowledge.AllowedExts = def.Knowledge.AllowedExts
	}
	if c.Auth.SessionExpiryDays == 0 {
		c.Auth.SessionExpiryDays = def.Auth.SessionExpiryDays
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = def.Storage.DatabasePath
	}
	if c.Storage.PreferencesPath == "" {
		c.Storage.PreferencesPath = def.Storage.PreferencesPath
	}
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// applyEnvOverrides applies environment variable overrides. Keys are the
// usual deployment knobs; credentials are expected to arrive this way.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FARMHAND_WEATHER_API_KEY"); v != "" {
		c.Weather.APIKey = v
	}
	if v := os.Getenv("FARMHAND_PLANT_API_KEY"); v != "" {
		c.Plant.APIKey = v
	}
	if v := os.Getenv("FARMHAND_GENERATIVE_KEY"); v != "" {
		c.Assistant.GenerativeKey = v
	}
	if v := os.Getenv("FARMHAND_DIALOGUE_KEY"); v != "" {
		c.Assistant.DialogueKey = v
	}
	if v := os.Getenv("FARMHAND_TRANSCRIBE_KEY"); v != "" {
		c.Voice.TranscribeKey = v
	}
	if v := os.Getenv("FARMHAND_PREMIUM_TTS_KEY"); v != "" {
		c.Voice.PremiumTTSKey = v
	}
	if v := os.Getenv("FARMHAND_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FARMHAND_DEBUG_ENABLED"); v != "" {
		switch v {
		case "true":
			c.Logging.DebugEnabled = true
		case "false":
			c.Logging.DebugEnabled = false
		}
	}
	if v := os.Getenv("FARMHAND_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("FARMHAND_SERVER_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &c.Server.Port)
	}
	if v := os.Getenv("FARMHAND_SERVER_BIND_ADDRESS"); v != "" {
		c.Server.BindAddress = v
	}
	if v := os.Getenv("FARMHAND_DATABASE_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("FARMHAND_ADMIN_PASSWORD"); v != "" {
		c.Auth.AdminPassword = v
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Weather.TimeoutSecs < 1 {
		return fmt.Errorf("weather timeout must be positive")
	}
	if c.Plant.TimeoutSecs < 1 {
		return fmt.Errorf("plant timeout must be positive")
	}
	if c.Assistant.TimeoutSecs < 1 {
		return fmt.Errorf("assistant timeout must be positive")
	}
	if c.Voice.InactivitySecs < 1 {
		return fmt.Errorf("voice inactivity interval must be positive")
	}

	if c.Auth.Enabled && c.Auth.AdminUser == "" {
		return fmt.Errorf("auth enabled but no admin user configured")
	}

	return nil
}
