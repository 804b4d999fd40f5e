package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request  RequestConfig  `yaml:"request"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	POI      POIConfig      `yaml:"poi"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Research ResearchConfig `yaml:"research"`
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	ConvAI   ConvAIConfig   `yaml:"convai"`
	Narrator NarratorConfig `yaml:"narrator"`
	Prompts  PromptsConfig  `yaml:"prompts"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// POIConfig holds settings for the Overpass POI search.
type POIConfig struct {
	URL        string   `yaml:"url"`
	RadiusM    Distance `yaml:"radius"`
	MaxResults int      `yaml:"max_results"`
}

// GeocodeConfig holds settings for Nominatim reverse geocoding.
type GeocodeConfig struct {
	URL         string `yaml:"url"`
	DefaultCity string `yaml:"default_city"`
}

// ResearchConfig holds settings for the Perplexity research provider.
type ResearchConfig struct {
	Key       string `yaml:"key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// LLMConfig holds settings for the script-generation LLM provider.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // "anthropic", "gemini"
	Key       string `yaml:"key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// TTSConfig holds ElevenLabs text-to-speech settings.
type TTSConfig struct {
	Key     string `yaml:"key"`
	VoiceID string `yaml:"voice"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	OutDir  string `yaml:"out_dir"`
}

// ConvAIConfig holds settings for the live conversational voice session.
type ConvAIConfig struct {
	AgentID string `yaml:"agent_id"`
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
}

// NarratorConfig holds settings for story narration.
type NarratorConfig struct {
	NarrationLengthMin int    `yaml:"narration_length_min"` // Random range min (default 400)
	NarrationLengthMax int    `yaml:"narration_length_max"` // Random range max (default 600)
	DefaultLanguage    string `yaml:"default_language"`
	DefaultVoiceStyle  string `yaml:"default_voice_style"`
}

// PromptsConfig holds the prompt template location.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(25 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/kahaani.db",
		},
		Server: ServerConfig{
			Address: "localhost:3001",
		},
		POI: POIConfig{
			URL:        "https://overpass-api.de/api/interpreter",
			RadiusM:    Distance(2000),
			MaxResults: 15,
		},
		Geocode: GeocodeConfig{
			URL:         "https://nominatim.openstreetmap.org/reverse",
			DefaultCity: "Mumbai",
		},
		Research: ResearchConfig{
			Model:     "sonar",
			MaxTokens: 2500,
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 2500,
		},
		TTS: TTSConfig{
			VoiceID: "pNInz6obpgDQGcFmaJgB",
			Model:   "eleven_turbo_v2_5",
			BaseURL: "https://api.elevenlabs.io",
			OutDir:  "./data/narrations",
		},
		ConvAI: ConvAIConfig{
			BaseURL: "https://api.elevenlabs.io",
			WSURL:   "wss://api.elevenlabs.io/v1/convai/conversation",
		},
		Narrator: NarratorConfig{
			NarrationLengthMin: 400,
			NarrationLengthMax: 600,
			DefaultLanguage:    "english",
			DefaultVoiceStyle:  "dramatic",
		},
		Prompts: PromptsConfig{
			Dir: "./configs/prompts",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save
// back to disk (to preserve user formatting and comments).
// Credentials left empty in the file fall back to environment variables, read
// once here and never again.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		cfg.applyEnvFallbacks()
		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.applyEnvFallbacks()
	return cfg, nil
}

// applyEnvFallbacks fills empty credentials from the environment.
// Absence of a credential is not an error here; each adapter owns its own
// degraded-mode policy.
func (c *Config) applyEnvFallbacks() {
	if c.Research.Key == "" {
		c.Research.Key = os.Getenv("PERPLEXITY_API_KEY")
	}
	if c.LLM.Key == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.Key = os.Getenv("GEMINI_API_KEY")
		default:
			c.LLM.Key = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if c.TTS.Key == "" {
		c.TTS.Key = os.Getenv("ELEVENLABS_API_KEY")
	}
	if c.ConvAI.Key == "" {
		c.ConvAI.Key = os.Getenv("ELEVENLABS_API_KEY")
	}
	if c.ConvAI.AgentID == "" {
		c.ConvAI.AgentID = os.Getenv("ELEVENLABS_AGENT_ID")
	}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# KahaaniGo Configuration
# ----------------------
# Supported Units:
#   Duration: ns, us, ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers)
# Credentials left empty fall back to environment variables:
#   PERPLEXITY_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY,
#   ELEVENLABS_API_KEY, ELEVENLABS_AGENT_ID

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
