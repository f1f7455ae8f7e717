package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ConfigPathEnvVar = "SCREENCLIP_CONFIG"

	BackendXclip  = "xclip"
	BackendNative = "native"

	defaultCancelKey     = "q"
	defaultOutlineWidth  = 1
	defaultTempPath      = "clip.png"
	defaultOutputPath    = "/tmp/clip.png"
	defaultClipboardCmd  = "xclip"
	defaultClipboardHold = 10
	defaultHotkey        = "Ctrl+Shift+S"
)

// LoadOptions carries command-line overrides; empty fields leave the loaded value alone.
type LoadOptions struct {
	DisplayOverride          string
	OutputPathOverride       string
	ClipboardBackendOverride string
}

type Config struct {
	// DisplayName is the X display to open; empty means $DISPLAY.
	DisplayName       string
	CancelKey         string
	OutlineWidth      int
	TempPath          string
	OutputPath        string
	ClipboardBackend  string
	ClipboardCommand  string
	ClipboardHold     time.Duration
	PNGCompression    string
	Hotkey            string
	EnableFileLogging bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SCREENCLIP_CONFIG env var as a path to a config file
	// Variables already present in the environment win over the file.
	if envPath := resolveEnvPath(); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("read %s: %w", envPath, err)
		}
	}

	cfg := &Config{
		DisplayName:       os.Getenv("DISPLAY_NAME"),
		CancelKey:         getEnvWithDefault("CANCEL_KEY", defaultCancelKey),
		OutlineWidth:      getPositiveInt("OUTLINE_WIDTH", defaultOutlineWidth),
		TempPath:          getEnvWithDefault("TEMP_PATH", defaultTempPath),
		OutputPath:        getEnvWithDefault("OUTPUT_PATH", defaultOutputPath),
		ClipboardBackend:  strings.ToLower(getEnvWithDefault("CLIPBOARD_BACKEND", BackendXclip)),
		ClipboardCommand:  getEnvWithDefault("CLIPBOARD_COMMAND", defaultClipboardCmd),
		ClipboardHold:     time.Duration(getPositiveInt("CLIPBOARD_HOLD_SEC", defaultClipboardHold)) * time.Second,
		PNGCompression:    getEnvWithDefault("PNG_COMPRESSION", "default"),
		Hotkey:            getEnvWithDefault("HOTKEY", defaultHotkey),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
	}

	if v := strings.TrimSpace(opts.DisplayOverride); v != "" {
		cfg.DisplayName = v
	}
	if v := strings.TrimSpace(opts.OutputPathOverride); v != "" {
		cfg.OutputPath = v
	}
	if v := strings.TrimSpace(opts.ClipboardBackendOverride); v != "" {
		cfg.ClipboardBackend = strings.ToLower(v)
	}

	switch cfg.ClipboardBackend {
	case BackendXclip, BackendNative:
	default:
		return nil, fmt.Errorf("unknown clipboard backend %q (want %s or %s)", cfg.ClipboardBackend, BackendXclip, BackendNative)
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
