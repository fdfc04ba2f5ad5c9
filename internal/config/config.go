package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultResponderModel   = "facebook/blenderbot-400M-distill"
	DefaultTranscriberModel = "openai/whisper-tiny.en"
	DefaultAudioURL         = "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/IBMSkillsNetwork-GPXX04C6EN/Testing%20speech%20to%20text.mp3"
	defaultChunkLengthSec   = 30
	defaultBatchSize        = 8
	defaultStateDirLinux    = ".local/state/parley"
	defaultConfigDir        = ".config/parley"

	// DotEnvFile is read from the working directory on Load.
	DotEnvFile = ".env"
)

// Config holds user configuration loaded from TOML.
//
// Responder backends: huggingface, openai, exec.
// Transcriber backends: whisper (model_path), sidecar and openai (url).
type Config struct {
	Responder struct {
		Backend      string   `toml:"backend" validate:"omitempty,oneof=huggingface hf openai exec"`
		Model        string   `toml:"model"`
		BaseURL      string   `toml:"base_url" validate:"omitempty,url"`
		APIKeyEnv    string   `toml:"api_key_env"`
		SystemPrompt string   `toml:"system_prompt"`
		Command      string   `toml:"command"`
		Args         []string `toml:"args"`
		TimeoutSec   float64  `toml:"timeout_sec" validate:"gte=0"`
	} `toml:"responder"`

	Chat struct {
		Prompt string `toml:"prompt"`
	} `toml:"chat"`

	Transcriber struct {
		Backend        string  `toml:"backend" validate:"omitempty,oneof=whisper sidecar openai"`
		Model          string  `toml:"model"`
		ModelPath      string  `toml:"model_path"`
		URL            string  `toml:"url" validate:"omitempty,url"`
		APIKeyEnv      string  `toml:"api_key_env"`
		Language       string  `toml:"language"`
		ChunkLengthSec int     `toml:"chunk_length_s" validate:"gt=0"`
		BatchSize      int     `toml:"batch_size" validate:"gt=0"`
		TimeoutSec     float64 `toml:"timeout_sec" validate:"gte=0"`
	} `toml:"transcriber"`

	Fetch struct {
		URL      string `toml:"url" validate:"required,url"`
		DestPath string `toml:"dest_path" validate:"required"`
	} `toml:"fetch"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stderr bool   `toml:"stderr"`
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ModelDir   string `toml:"model_dir"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "parley")
	}

	cfg := &Config{}

	cfg.Responder.Backend = "huggingface"
	cfg.Responder.Model = DefaultResponderModel
	cfg.Responder.BaseURL = ""
	cfg.Responder.APIKeyEnv = "HF_TOKEN"
	cfg.Responder.Args = []string{}

	cfg.Chat.Prompt = "> "

	cfg.Transcriber.Backend = "whisper"
	cfg.Transcriber.Model = DefaultTranscriberModel
	cfg.Transcriber.ModelPath = filepath.Join(stateDir, "models", "ggml-tiny.en.bin")
	cfg.Transcriber.URL = ""
	cfg.Transcriber.APIKeyEnv = "OPENAI_API_KEY"
	cfg.Transcriber.Language = "en"
	cfg.Transcriber.ChunkLengthSec = defaultChunkLengthSec
	cfg.Transcriber.BatchSize = defaultBatchSize

	cfg.Fetch.URL = DefaultAudioURL
	cfg.Fetch.DestPath = "downloaded_audio.mp3"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "parley.log")
	cfg.Paths.ModelDir = filepath.Join(stateDir, "models")

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Paths.ConfigPath = path

	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	cfg.Responder.Backend = strings.ToLower(cfg.Responder.Backend)
	cfg.Transcriber.Backend = strings.ToLower(cfg.Transcriber.Backend)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports KEY=value pairs from path (API tokens, PARLEY_*
// overrides) without replacing variables already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// DefaultPath returns ~/.config/parley/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultConfigDir, "config.toml"), nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARLEY_RESPONDER_BACKEND"); v != "" {
		cfg.Responder.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PARLEY_RESPONDER_URL"); v != "" {
		cfg.Responder.BaseURL = v
	}
	if v := os.Getenv("PARLEY_RESPONDER_MODEL"); v != "" {
		cfg.Responder.Model = v
	}
	if v := os.Getenv("PARLEY_TRANSCRIBER_BACKEND"); v != "" {
		cfg.Transcriber.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PARLEY_TRANSCRIBER_URL"); v != "" {
		cfg.Transcriber.URL = v
	}
	if v := os.Getenv("PARLEY_AUDIO_URL"); v != "" {
		cfg.Fetch.URL = v
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PARLEY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
