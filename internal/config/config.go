// Package config provides configuration for the imagechat server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the imagechat configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Transcript store. The default keeps everything in process memory.
	DatabaseURL string `yaml:"database_url"`

	// Upstream API settings
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	LLMMode        string `yaml:"llm_mode"`
	ChatModel      string `yaml:"chat_model"`
	SpeechModel    string `yaml:"speech_model"`
	SpeechVoice    string `yaml:"speech_voice"`
	ImageMaxTokens int    `yaml:"image_max_tokens"`

	// Uploads and scratch files
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	MaxImagePixels int64  `yaml:"max_image_pixels"`
	TempDir        string `yaml:"temp_dir"`

	// Timeouts
	CompletionTimeout  time.Duration `yaml:"completion_timeout"`
	SpeechTimeout      time.Duration `yaml:"speech_timeout"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`

	// WebSocket settings
	PingInterval   time.Duration `yaml:"ws_ping_interval"`
	WriteTimeout   time.Duration `yaml:"ws_write_timeout"`
	ReadTimeout    time.Duration `yaml:"ws_read_timeout"`
	MaxMessageSize int64         `yaml:"ws_max_message_size"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:           8080,
		DatabaseURL:        ":memory:",
		OpenAIBaseURL:      "https://api.openai.com",
		ChatModel:          "gpt-4o-mini",
		SpeechModel:        "tts-1",
		SpeechVoice:        "onyx",
		ImageMaxTokens:     1024,
		MaxUploadBytes:     20 << 20,
		MaxImagePixels:     25_000_000,
		TempDir:            os.TempDir(),
		CompletionTimeout:  120 * time.Second,
		SpeechTimeout:      60 * time.Second,
		SessionIdleTimeout: time.Hour,
		PingInterval:       30 * time.Second,
		WriteTimeout:       10 * time.Second,
		ReadTimeout:        60 * time.Second,
		MaxMessageSize:     65536,
		LogLevel:           "info",
	}
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// LoadFile loads configuration from a YAML file and then applies
// environment overrides. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.LLMMode = getEnv("LLM_MODE", cfg.LLMMode)
	cfg.ChatModel = getEnv("CHAT_MODEL", cfg.ChatModel)
	cfg.SpeechModel = getEnv("SPEECH_MODEL", cfg.SpeechModel)
	cfg.SpeechVoice = getEnv("SPEECH_VOICE", cfg.SpeechVoice)
	cfg.ImageMaxTokens = getEnvInt("IMAGE_MAX_TOKENS", cfg.ImageMaxTokens)
	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.MaxImagePixels = int64(getEnvInt("MAX_IMAGE_PIXELS", int(cfg.MaxImagePixels)))
	cfg.TempDir = getEnv("TEMP_DIR", cfg.TempDir)
	cfg.CompletionTimeout = getEnvMillis("COMPLETION_TIMEOUT_MS", cfg.CompletionTimeout)
	cfg.SpeechTimeout = getEnvMillis("SPEECH_TIMEOUT_MS", cfg.SpeechTimeout)
	cfg.SessionIdleTimeout = getEnvMillis("SESSION_IDLE_TIMEOUT_MS", cfg.SessionIdleTimeout)
	cfg.PingInterval = getEnvMillis("WS_PING_INTERVAL_MS", cfg.PingInterval)
	cfg.WriteTimeout = getEnvMillis("WS_WRITE_TIMEOUT_MS", cfg.WriteTimeout)
	cfg.ReadTimeout = getEnvMillis("WS_READ_TIMEOUT_MS", cfg.ReadTimeout)
	cfg.MaxMessageSize = int64(getEnvInt("WS_MAX_MESSAGE_SIZE", int(cfg.MaxMessageSize)))
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	return time.Duration(getEnvInt(key, int(defaultVal/time.Millisecond))) * time.Millisecond
}
