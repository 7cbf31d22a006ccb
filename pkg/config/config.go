package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Audio    AudioConfig
	Provider ProviderConfig
	Budget   BudgetConfig

	// StoragePath hosts the badger database (budget ledger + history).
	StoragePath string
	// CacheDir holds encoded chunk artifacts between runs.
	CacheDir string
}

type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AudioConfig struct {
	FFmpegBin  string
	FFprobeBin string
	WhisperBin string

	TargetChunkMB  float64
	MaxChunkMB     float64
	OverlapSec     int
	BitrateKbps    int
	EncodeWorkers  int
	ProbeTimeout   time.Duration
	EncodeTimeout  time.Duration
	FullEncTimeout time.Duration
}

type ProviderConfig struct {
	OpenAIKey       string
	GroqKey         string
	DefaultLanguage string
	RequestTimeout  time.Duration
}

type BudgetConfig struct {
	DailyLimitUSD float64
}

// Load builds the configuration from defaults, a .env file when present, and
// environment variable overrides.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Address:      envString("TRANSCRIPTOR_ADDR", ":8080"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Audio: AudioConfig{
			FFmpegBin:      envString("FFMPEG_BIN", "ffmpeg"),
			FFprobeBin:     envString("FFPROBE_BIN", "ffprobe"),
			WhisperBin:     envString("WHISPER_BIN", "whisper"),
			TargetChunkMB:  20,
			MaxChunkMB:     25,
			OverlapSec:     5,
			BitrateKbps:    64,
			EncodeWorkers:  envInt("TRANSCRIPTOR_ENCODE_WORKERS", 0), // 0 = min(cores, 4)
			ProbeTimeout:   30 * time.Second,
			EncodeTimeout:  120 * time.Second,
			FullEncTimeout: 300 * time.Second,
		},
		Provider: ProviderConfig{
			OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
			GroqKey:         os.Getenv("GROQ_API_KEY"),
			DefaultLanguage: envString("TRANSCRIPTOR_LANGUAGE", "es"),
			RequestTimeout:  10 * time.Minute,
		},
		Budget: BudgetConfig{
			DailyLimitUSD: envFloat("TRANSCRIPTOR_DAILY_BUDGET", 2.0),
		},
		StoragePath: envString("TRANSCRIPTOR_DATA_DIR", filepath.Join(xdg.DataHome, "transcriptor")),
		CacheDir:    envString("TRANSCRIPTOR_CACHE_DIR", filepath.Join(xdg.CacheHome, "transcriptor", "chunks")),
	}

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
