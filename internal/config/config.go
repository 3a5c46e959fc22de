// Package config loads chai settings from CHAI_* environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const Prefix = "CHAI"

// Config holds process settings. Environment variables use the CHAI_ prefix,
// e.g. CHAI_HTTP_PORT, CHAI_PROVIDER_MODE.
type Config struct {
	HTTPPort int    `envconfig:"HTTP_PORT" default:"1323"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Model         string   `envconfig:"MODEL" default:"gemini-2.5-flash"`
	ProviderMode  string   `envconfig:"PROVIDER_MODE" default:"geminiDefault"`
	ManagedAPIKey string   `envconfig:"GEMINI_API_KEY"`
	CustomAPIKeys []string `envconfig:"CUSTOM_API_KEYS"`

	EnableMemory        bool `envconfig:"ENABLE_MEMORY" default:"true"`
	EnableEmotions      bool `envconfig:"ENABLE_EMOTIONS" default:"true"`
	EnableTimeAwareness bool `envconfig:"ENABLE_TIME_AWARENESS" default:"false"`
	EnableDateAwareness bool `envconfig:"ENABLE_DATE_AWARENESS" default:"false"`
	EnableGroupMemory   bool `envconfig:"ENABLE_GROUP_MEMORY" default:"false"`
	EnableWebSearch     bool `envconfig:"ENABLE_WEB_SEARCH" default:"false"`
	MakeLongerReply     bool `envconfig:"MAKE_LONGER_REPLY" default:"false"`

	ContentPolicyEnabled bool   `envconfig:"CONTENT_POLICY_ENABLED" default:"false"`
	EroticaLevel         string `envconfig:"EROTICA_LEVEL" default:"none"`
	ViolenceLevel        string `envconfig:"VIOLENCE_LEVEL" default:"none"`
	DarkContentLevel     string `envconfig:"DARK_CONTENT_LEVEL" default:"none"`
	ContentStyle         string `envconfig:"CONTENT_STYLE"`
	CodecPath            string `envconfig:"CODEC_PATH"`

	UserName string `envconfig:"USER_NAME"`
	UserBio  string `envconfig:"USER_BIO"`

	DBPath   string `envconfig:"DB_PATH" default:"data/chai.db"`
	Timezone string `envconfig:"TIMEZONE" default:"Local"`

	policy   llm.ContentPolicy
	location *time.Location
}

// New parses the environment. GEMINI_API_KEY is honoured when
// CHAI_GEMINI_API_KEY is unset.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrapf(llm.ErrConfiguration, "process environment: %v", err)
	}
	if cfg.ManagedAPIKey == "" {
		cfg.ManagedAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve validates enumerated fields and derives the policy and location.
func (c *Config) Resolve() error {
	switch credential.Mode(c.ProviderMode) {
	case credential.ModeManaged, credential.ModeCustom:
	default:
		return errors.Wrapf(llm.ErrConfiguration, "unsupported PROVIDER_MODE %q", c.ProviderMode)
	}

	levels := make([]llm.Level, 0, 3)
	for _, s := range []string{c.EroticaLevel, c.ViolenceLevel, c.DarkContentLevel} {
		l, err := llm.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return errors.Wrap(llm.ErrConfiguration, err.Error())
		}
		levels = append(levels, l)
	}
	c.policy = llm.ContentPolicy{
		Enabled:     c.ContentPolicyEnabled,
		Erotica:     levels[0],
		Violence:    levels[1],
		DarkContent: levels[2],
		Style:       c.ContentStyle,
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errors.Wrapf(llm.ErrConfiguration, "timezone %q: %v", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Pool builds the credential pool for the configured mode. A managed pool
// always holds the process key, even when it is blank.
func (c *Config) Pool() credential.Pool {
	if credential.Mode(c.ProviderMode) == credential.ModeCustom {
		return credential.Custom(c.CustomAPIKeys...)
	}
	return credential.Managed(c.ManagedAPIKey)
}

func (c *Config) Features() llm.Features {
	return llm.Features{
		Memory:        c.EnableMemory,
		Emotions:      c.EnableEmotions,
		TimeAwareness: c.EnableTimeAwareness,
		DateAwareness: c.EnableDateAwareness,
		GroupMemory:   c.EnableGroupMemory,
		WebSearch:     c.EnableWebSearch,
		LongerReply:   c.MakeLongerReply,
	}
}

func (c *Config) Policy() llm.ContentPolicy { return c.policy }

func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func (c *Config) User() llm.UserProfile {
	return llm.UserProfile{Name: c.UserName, Bio: c.UserBio}
}

// Log writes the loaded settings without secrets.
func (c *Config) Log(log zerolog.Logger) {
	log.Info().
		Int("port", c.HTTPPort).
		Str("model", c.Model).
		Str("provider_mode", c.ProviderMode).
		Bool("managed_key_present", c.ManagedAPIKey != "").
		Int("custom_keys", len(c.CustomAPIKeys)).
		Bool("content_policy", c.ContentPolicyEnabled).
		Bool("codec", c.CodecPath != "").
		Str("db_path", c.DBPath).
		Str("timezone", c.Timezone).
		Msg("configuration loaded")
}
