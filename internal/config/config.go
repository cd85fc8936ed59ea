package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Values come from the environment
// (loaded from .env by main) with optional render settings from a yaml file.
type Config struct {
	Port         string
	DatabasePath string
	WorkDir      string
	OutputDir    string
	PublicBase   string
	Workers      int
	Verbose      bool

	// Collaborator credentials. Empty values put the corresponding stage in
	// its documented degraded mode.
	GroqAPIKey      string
	GroqModel       string
	PexelsAPIKey    string
	WhisperModel    string
	StorageProvider string

	YouTubeClientSecrets string
	YouTubeToken         string

	Render RenderConfig
}

// RenderConfig carries encoder knobs, loaded from render.yaml when present.
type RenderConfig struct {
	HardwareCodec string  `yaml:"hardware_codec"`
	SoftwareCodec string  `yaml:"software_codec"`
	AudioCodec    string  `yaml:"audio_codec"`
	CRF           int     `yaml:"crf"`
	Preset        string  `yaml:"preset"`
	FPS           float64 `yaml:"fps"`
	FontName      string  `yaml:"font_name"`
	FontSize      int     `yaml:"font_size"`
	Threads       int     `yaml:"threads"`
}

// DefaultRender mirrors the premium render settings used for social output.
func DefaultRender() RenderConfig {
	return RenderConfig{
		HardwareCodec: "h264_nvenc",
		SoftwareCodec: "libx264",
		AudioCodec:    "aac",
		CRF:           18,
		Preset:        "slower",
		FPS:           30,
		FontName:      "DejaVu Sans",
		FontSize:      18,
		Threads:       4,
	}
}

// Load builds a Config from the environment plus an optional render yaml.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            envOr("PORT", "8080"),
		DatabasePath:    envOr("DATABASE_PATH", "data/viralforge.db"),
		WorkDir:         envOr("WORK_DIR", "temp"),
		OutputDir:       envOr("OUTPUT_DIR", "outputs"),
		PublicBase:      envOr("PUBLIC_BASE_URL", "http://localhost:8080"),
		Workers:         envIntOr("WORKERS", 2),
		Verbose:         os.Getenv("VERBOSE") == "true",
		GroqAPIKey:      os.Getenv("GROQ_API_KEY"),
		GroqModel:       envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		PexelsAPIKey:    os.Getenv("PEXELS_API_KEY"),
		WhisperModel:    envOr("WHISPER_MODEL", "base"),
		StorageProvider: envOr("STORAGE_PROVIDER", "LOCAL"),

		YouTubeClientSecrets: os.Getenv("YOUTUBE_CLIENT_SECRETS"),
		YouTubeToken:         os.Getenv("YOUTUBE_TOKEN"),

		Render: DefaultRender(),
	}

	if path := envOr("RENDER_CONFIG", "render.yaml"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg.Render); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
