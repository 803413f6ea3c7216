package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Reader settings
type ReaderConfig struct {
	LookAhead  int `toml:"look_ahead"`
	PageHeight int `toml:"page_height"`
	ScrollStep int `toml:"scroll_step"`
	ImageWidth int    `toml:"image_width"` // 0 = terminal width
	Mode       string `toml:"mode"`        // webtoon | paged
}

const (
	ModeWebtoon = "webtoon"
	ModePaged   = "paged"
)

// Manga server settings
type ServerConfig struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
	Retries int    `toml:"retries"`
}

// Local library settings
type LibraryConfig struct {
	Paths []string `toml:"paths"`
}

// A scraped web site
type WebConfig struct {
	Name            string `toml:"name"`
	URL             string `toml:"url"`
	ChapterSelector string `toml:"chapter_selector"`
	ImageSelector   string `toml:"image_selector"`
	Reverse         bool   `toml:"reverse"` // chapter list is newest first
}

type LogConfig struct {
	Level string `toml:"level"` // none | normal | debug
	File  string `toml:"file"`
}

type UIConfig struct {
	Language string `toml:"language"`
}

// Root config
type Config struct {
	Reader  ReaderConfig  `toml:"reader"`
	Server  ServerConfig  `toml:"server"`
	Library LibraryConfig `toml:"library"`
	Web     []WebConfig   `toml:"web"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
}

// Global variable to hold config
var AppConfig = DefaultConfig()

const appName = "manga_reader"

func DefaultConfig() Config {
	return Config{
		Reader: ReaderConfig{
			LookAhead:  3,
			PageHeight: 24,
			ScrollStep: 3,
			Mode:       ModeWebtoon,
		},
		Server: ServerConfig{
			URL:     "http://127.0.0.1:4567",
			Timeout: "30s",
			Retries: 3,
		},
		Log: LogConfig{
			Level: "normal",
			File:  filepath.Join("~", ".config", appName, appName+".log"),
		},
		UI: UIConfig{Language: "en"},
	}
}

// ConfigDir returns ~/.config/manga_reader.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultConfigPath returns the config file used when none is given.
func DefaultConfigPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// expandPath replaces leading "~" with user home dir
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// ParseConfig decodes TOML on top of the defaults and sanitizes the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

// LoadConfig reads the config file into AppConfig. A missing file leaves the
// defaults in place.
func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.sanitize()
		AppConfig = cfg
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func (c *Config) sanitize() {
	if c.Reader.LookAhead < 0 {
		c.Reader.LookAhead = 0
	}
	if c.Reader.PageHeight < 4 {
		c.Reader.PageHeight = 4
	}
	if c.Reader.ScrollStep < 1 {
		c.Reader.ScrollStep = 1
	}
	if c.Reader.ImageWidth < 0 {
		c.Reader.ImageWidth = 0
	}
	c.Reader.Mode = strings.ToLower(strings.TrimSpace(c.Reader.Mode))
	if c.Reader.Mode != ModePaged {
		c.Reader.Mode = ModeWebtoon
	}
	if c.Server.Retries < 1 {
		c.Server.Retries = 1
	}
	c.Server.URL = strings.TrimRight(c.Server.URL, "/")

	// Expand ~ in library paths
	for i, p := range c.Library.Paths {
		c.Library.Paths[i] = expandPath(p)
	}
	c.Log.File = expandPath(c.Log.File)
}

// ServerTimeout parses the server timeout, falling back to 30 seconds.
func (c Config) ServerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// DumpConfig encodes cfg as TOML.
func DumpConfig(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}
