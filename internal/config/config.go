// Package config loads the server configuration from command-line flags,
// environment variables, a .env file and git metadata, in that order of
// precedence.
//
// It should be imported only by cmd/spacebridge-mcp (and test code). Other
// packages receive an already-built Config via their constructors.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spacebridge-io/spacebridge-mcp/internal/duplicates"
	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// ErrMissingAPIKey is returned by Load when no tracker API key is set.
var ErrMissingAPIKey = errors.New("missing required configuration: SpaceBridge API key (--spacebridge-api-key or SPACEBRIDGE_API_KEY)")

const defaultTimeout = 30 * time.Second

// Config holds every runtime option the server needs.
type Config struct {
	// Tracker
	APIURL  string
	APIKey  string
	Org     string
	Project string
	Timeout time.Duration

	// Duplicate detection
	AnthropicAPIKey     string
	AnthropicBaseURL    string
	AnthropicModel      string
	SimilarityThreshold float64
	DuplicateTopN       int
	DuplicateStrategy   duplicates.Strategy

	LogLevel         slog.Level
	SkipVersionCheck bool

	// Warnings collects recoverable problems found while loading (bad
	// numbers, unknown log level). They are logged once a logger exists.
	Warnings []string
}

// Scope returns the startup (organization, project) context.
func (c *Config) Scope() tracker.Scope {
	return tracker.Scope{Org: c.Org, Project: c.Project}
}

// setting ties a viper key to its flag and environment variable.
type setting struct {
	key  string
	flag string
	env  string
}

var settings = []setting{
	{"api_url", "spacebridge-api-url", "SPACEBRIDGE_API_URL"},
	{"api_key", "spacebridge-api-key", "SPACEBRIDGE_API_KEY"},
	{"org", "org", "SPACEBRIDGE_ORG_NAME"},
	{"project", "project", "SPACEBRIDGE_PROJECT_NAME"},
	{"anthropic_api_key", "anthropic-api-key", "ANTHROPIC_API_KEY"},
	{"anthropic_base_url", "anthropic-base-url", "ANTHROPIC_BASE_URL"},
	{"anthropic_model", "anthropic-model", "ANTHROPIC_MODEL"},
	{"similarity_threshold", "similarity-threshold", "SIMILARITY_THRESHOLD"},
	{"duplicate_top_n", "duplicate-top-n", "DUPLICATE_TOP_N"},
	{"duplicate_strategy", "duplicate-strategy", "DUPLICATE_STRATEGY"},
	{"timeout", "timeout", "SPACEBRIDGE_TIMEOUT"},
	{"log_level", "log-level", "LOG_LEVEL"},
	{"skip_version_check", "skip-version-check", "SPACEBRIDGE_SKIP_VERSION_CHECK"},
}

// For testing: allow overriding the .env location and the git lookup.
var (
	dotEnvFile   = ".env"
	gitRemoteURL = func() (string, error) {
		out, err := exec.Command("git", "config", "--get", "remote.origin.url").Output()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}
)

// RegisterFlags adds the configuration flags to fs. Numeric settings are
// string flags so that bad input falls back to the default with a warning
// instead of aborting flag parsing.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("spacebridge-api-url", "", "SpaceBridge base URL (default "+tracker.DefaultBaseURL+")")
	fs.String("spacebridge-api-key", "", "SpaceBridge API key")
	fs.String("org", "", "default organization (falls back to the git remote owner)")
	fs.String("project", "", "default project (falls back to the git remote repository)")
	fs.String("anthropic-api-key", "", "Anthropic API key; enables LLM duplicate detection")
	fs.String("anthropic-base-url", "", "Anthropic API base URL override")
	fs.String("anthropic-model", "", "Anthropic model for duplicate detection")
	fs.String("similarity-threshold", "", fmt.Sprintf("similarity score treated as a duplicate (default %g)", duplicates.DefaultThreshold))
	fs.String("duplicate-top-n", "", fmt.Sprintf("candidates shown to the LLM detector (default %d)", duplicates.DefaultTopN))
	fs.String("duplicate-strategy", "", "duplicate detection: auto, threshold or none (default auto)")
	fs.String("timeout", "", "HTTP timeout, seconds or a duration like 45s (default 30s)")
	fs.String("log-level", "", "log level: debug, info, warn or error (default info)")
	fs.Bool("skip-version-check", false, "skip the startup version compatibility check")
}

// Load builds a Config. fs may be nil, in which case only the environment,
// .env and git metadata are consulted.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// No-op if the file doesn't exist; never overrides the real environment.
	_ = godotenv.Load(dotEnvFile)

	v := viper.New()
	v.SetDefault("api_url", tracker.DefaultBaseURL)
	v.SetDefault("duplicate_strategy", string(duplicates.StrategyAuto))
	v.SetDefault("log_level", "info")

	for _, s := range settings {
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", s.env, err)
		}
		if fs == nil {
			continue
		}
		if f := fs.Lookup(s.flag); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", s.flag, err)
			}
		}
	}

	cfg := &Config{
		APIURL:           strings.TrimSpace(v.GetString("api_url")),
		APIKey:           strings.TrimSpace(v.GetString("api_key")),
		Org:              strings.TrimSpace(v.GetString("org")),
		Project:          strings.TrimSpace(v.GetString("project")),
		AnthropicAPIKey:  strings.TrimSpace(v.GetString("anthropic_api_key")),
		AnthropicBaseURL: strings.TrimSpace(v.GetString("anthropic_base_url")),
		AnthropicModel:   strings.TrimSpace(v.GetString("anthropic_model")),
		SkipVersionCheck: v.GetBool("skip_version_check"),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = tracker.DefaultBaseURL
	}

	cfg.SimilarityThreshold = cfg.parseThreshold(v.GetString("similarity_threshold"))
	cfg.DuplicateTopN = cfg.parseTopN(v.GetString("duplicate_top_n"))
	cfg.Timeout = cfg.parseTimeout(v.GetString("timeout"))
	cfg.LogLevel = cfg.parseLogLevel(v.GetString("log_level"))

	strategy, err := duplicates.ParseStrategy(v.GetString("duplicate_strategy"))
	if err != nil {
		return nil, err
	}
	cfg.DuplicateStrategy = strategy

	if cfg.Org == "" || cfg.Project == "" {
		cfg.fillFromGit()
	}

	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return cfg, nil
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) parseThreshold(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return duplicates.DefaultThreshold
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		c.warnf("invalid similarity threshold %q; using default %g", raw, duplicates.DefaultThreshold)
		return duplicates.DefaultThreshold
	}
	return f
}

func (c *Config) parseTopN(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return duplicates.DefaultTopN
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n <= 0 {
		c.warnf("invalid duplicate top-n %q; using default %d", raw, duplicates.DefaultTopN)
		return duplicates.DefaultTopN
	}
	return n
}

// parseTimeout accepts whole seconds ("45") or a Go duration ("1m30s").
func (c *Config) parseTimeout(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTimeout
	}
	if secs, err := cast.ToIntE(raw); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
	} else if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	c.warnf("invalid timeout %q; using default %s", raw, defaultTimeout)
	return defaultTimeout
}

func (c *Config) parseLogLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		c.warnf("invalid log level %q; using info", raw)
		return slog.LevelInfo
	}
	return level
}

// fillFromGit sets whichever of Org/Project is still empty from the
// origin remote of the enclosing git repository.
func (c *Config) fillFromGit() {
	remote, err := gitRemoteURL()
	if err != nil || remote == "" {
		return
	}
	org, project := ParseRemote(remote)
	if c.Org == "" {
		c.Org = org
	}
	if c.Project == "" {
		c.Project = project
	}
}

var remotePattern = regexp.MustCompile(`(?:[:/])([^/]+)/([^/]+?)(?:\.git)?$`)

// ParseRemote extracts (owner, repository) from an SSH or HTTPS git
// remote URL. Both are empty when the URL doesn't match.
func ParseRemote(remote string) (org, project string) {
	m := remotePattern.FindStringSubmatch(strings.TrimSpace(remote))
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}
