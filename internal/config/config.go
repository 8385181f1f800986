// Package config loads application configuration from an optional YAML file
// overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment variable holding the config file path.
const EnvConfigFile = "HTMLMGR_CONFIG"

// Site is the site metadata exposed to page templates as .site.
type Site struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Config holds the application configuration. Directory fields other than
// SrcDir and DistDir are relative to SrcDir.
type Config struct {
	SrcDir           string            `yaml:"src_dir" validate:"required"`
	DistDir          string            `yaml:"dist_dir" validate:"required,nefield=SrcDir"`
	PagesDir         string            `yaml:"pages_dir" validate:"required"`
	TemplateDirs     []string          `yaml:"template_dirs" validate:"required,dive,required"`
	StyleDirs        []string          `yaml:"style_dirs" validate:"dive,required"`
	BannerStylesheet string            `yaml:"banner_stylesheet"`
	AssetsDir        string            `yaml:"assets_dir" validate:"required"`
	DataDir          string            `yaml:"data_dir"`
	DataSources      map[string]string `yaml:"data_sources" validate:"dive,keys,required,endkeys,required"`
	Site             Site              `yaml:"site"`
	ListenAddr       string            `yaml:"listen_addr" validate:"required,hostname_port"`
	DBPath           string            `yaml:"db_path"`
	Open             bool              `yaml:"open"`
	SassBinary       string            `yaml:"sass_binary" validate:"required"`
	ComposeFragments bool              `yaml:"compose_fragments"`
	MinifyHTML       bool              `yaml:"minify_html"`
	Debounce         time.Duration     `yaml:"debounce" validate:"gte=0"`
	LogLevel         string            `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		SrcDir:           "src",
		DistDir:          "dist",
		PagesDir:         "pages",
		TemplateDirs:     []string{"templates", "components", "."},
		StyleDirs:        []string{"scss", "components"},
		BannerStylesheet: "components/banner-list/banner-list.scss",
		AssetsDir:        "assets",
		DataDir:          "data",
		DataSources: map[string]string{
			"navigation":       "data/navigation.json",
			"notifications":    "data/notifications.json",
			"sidebarData":      "data/sidebar.json",
			"footerData":       "data/footer.json",
			"announcementData": "data/announcement-form.json",
			"topicData":        "data/topic-form.json",
			"standardFormData": "data/standard-form.json",
			"jisListData":      "data/jis-list.json",
			"downloadFormData": "data/download-form.json",
		},
		Site: Site{
			Title:       "HTML Management System",
			Description: "A collection of reusable HTML/CSS components",
		},
		ListenAddr:       "127.0.0.1:3000",
		DBPath:           "htmlmgr.db",
		Open:             true,
		SassBinary:       "sass",
		ComposeFragments: true,
		Debounce:         100 * time.Millisecond,
		LogLevel:         "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then HTMLMGR_* environment variables, and
// validates the result.
//
// Recognised variables: HTMLMGR_SRC_DIR, HTMLMGR_DIST_DIR,
// HTMLMGR_LISTEN_ADDR, HTMLMGR_DB_PATH (empty disables build history),
// HTMLMGR_OPEN, HTMLMGR_SASS_BINARY, HTMLMGR_COMPOSE_FRAGMENTS,
// HTMLMGR_MINIFY_HTML, HTMLMGR_DEBOUNCE, HTMLMGR_LOG_LEVEL,
// HTMLMGR_SITE_TITLE and HTMLMGR_SITE_DESCRIPTION.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"HTMLMGR_SRC_DIR":          &c.SrcDir,
		"HTMLMGR_DIST_DIR":         &c.DistDir,
		"HTMLMGR_LISTEN_ADDR":      &c.ListenAddr,
		"HTMLMGR_DB_PATH":          &c.DBPath,
		"HTMLMGR_SASS_BINARY":      &c.SassBinary,
		"HTMLMGR_LOG_LEVEL":        &c.LogLevel,
		"HTMLMGR_SITE_TITLE":       &c.Site.Title,
		"HTMLMGR_SITE_DESCRIPTION": &c.Site.Description,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"HTMLMGR_OPEN":              &c.Open,
		"HTMLMGR_COMPOSE_FRAGMENTS": &c.ComposeFragments,
		"HTMLMGR_MINIFY_HTML":       &c.MinifyHTML,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(key); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
			}
			*dst = parsed
		}
	}

	if v, ok := os.LookupEnv("HTMLMGR_DEBOUNCE"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HTMLMGR_DEBOUNCE has invalid duration %q: %w", v, err)
		}
		c.Debounce = parsed
	}

	return nil
}

// SiteData returns the site metadata in the shape page templates expect.
func (c *Config) SiteData() map[string]string {
	return map[string]string{
		"title":       c.Site.Title,
		"description": c.Site.Description,
	}
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
