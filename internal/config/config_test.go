package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacebridge-io/spacebridge-mcp/internal/duplicates"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// isolate clears every config variable, points .env at a temp file with
// the given content (none when empty) and stubs the git lookup.
func isolate(t *testing.T, dotEnv string, remote string) {
	t.Helper()
	for _, s := range settings {
		t.Setenv(s.env, "")
		require.NoError(t, os.Unsetenv(s.env))
	}

	path := filepath.Join(t.TempDir(), ".env")
	if dotEnv != "" {
		require.NoError(t, os.WriteFile(path, []byte(dotEnv), 0o600))
	}
	oldEnv, oldGit := dotEnvFile, gitRemoteURL
	dotEnvFile = path
	gitRemoteURL = func() (string, error) {
		if remote == "" {
			return "", errors.New("not a git repository")
		}
		return remote, nil
	}
	t.Cleanup(func() {
		dotEnvFile, gitRemoteURL = oldEnv, oldGit
		// godotenv writes straight into the process environment.
		for _, s := range settings {
			_ = os.Unsetenv(s.env)
		}
	})
}

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// ─── Load ────────────────────────────────────────────────────────────────────

func TestLoad_RequiresAPIKey(t *testing.T) {
	isolate(t, "", "")
	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t, "", "")
	t.Setenv("SPACEBRIDGE_API_KEY", "key")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "https://spacebridge.io", cfg.APIURL)
	assert.Equal(t, 0.75, cfg.SimilarityThreshold)
	assert.Equal(t, 3, cfg.DuplicateTopN)
	assert.Equal(t, duplicates.StrategyAuto, cfg.DuplicateStrategy)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.SkipVersionCheck)
	assert.Empty(t, cfg.Org)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t, "SPACEBRIDGE_API_KEY=from-dotenv\nSPACEBRIDGE_ORG_NAME=dotenv-org\nSPACEBRIDGE_PROJECT_NAME=dotenv-project\n", "git@github.com:git-org/git-project.git")
	t.Setenv("SPACEBRIDGE_ORG_NAME", "env-org")

	cfg, err := Load(flags(t, "--project", "flag-project"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.APIKey, ".env fills what the environment lacks")
	assert.Equal(t, "env-org", cfg.Org, "environment beats .env")
	assert.Equal(t, "flag-project", cfg.Project, "flag beats everything")
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	isolate(t, "", "")
	t.Setenv("SPACEBRIDGE_API_KEY", "env-key")
	t.Setenv("SPACEBRIDGE_ORG_NAME", "env-org")

	cfg, err := Load(flags(t, "--org", "flag-org", "--spacebridge-api-key", "flag-key"))
	require.NoError(t, err)
	assert.Equal(t, "flag-org", cfg.Org)
	assert.Equal(t, "flag-key", cfg.APIKey)
}

func TestLoad_GitFallback(t *testing.T) {
	isolate(t, "", "https://github.com/acme/web.git")
	t.Setenv("SPACEBRIDGE_API_KEY", "key")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, "web", cfg.Project)

	t.Setenv("SPACEBRIDGE_ORG_NAME", "explicit")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Org, "git only fills missing fields")
	assert.Equal(t, "web", cfg.Project)
}

func TestLoad_NumericSettings(t *testing.T) {
	isolate(t, "", "")
	t.Setenv("SPACEBRIDGE_API_KEY", "key")
	t.Setenv("SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("DUPLICATE_TOP_N", "5")
	t.Setenv("SPACEBRIDGE_TIMEOUT", "45")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SPACEBRIDGE_SKIP_VERSION_CHECK", "true")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.SimilarityThreshold)
	assert.Equal(t, 5, cfg.DuplicateTopN)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.SkipVersionCheck)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_BadNumbersFallBackWithWarnings(t *testing.T) {
	isolate(t, "", "")
	t.Setenv("SPACEBRIDGE_API_KEY", "key")
	t.Setenv("SIMILARITY_THRESHOLD", "very similar")
	t.Setenv("DUPLICATE_TOP_N", "-2")
	t.Setenv("SPACEBRIDGE_TIMEOUT", "soon")
	t.Setenv("LOG_LEVEL", "loud")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, duplicates.DefaultThreshold, cfg.SimilarityThreshold)
	assert.Equal(t, duplicates.DefaultTopN, cfg.DuplicateTopN)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Len(t, cfg.Warnings, 4)
}

func TestLoad_DurationTimeout(t *testing.T) {
	isolate(t, "", "")
	t.Setenv("SPACEBRIDGE_API_KEY", "key")

	cfg, err := Load(flags(t, "--timeout", "1m30s"))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
}

func TestLoad_Strategy(t *testing.T) {
	isolate(t, "", "")
	t.Setenv("SPACEBRIDGE_API_KEY", "key")

	cfg, err := Load(flags(t, "--duplicate-strategy", "none"))
	require.NoError(t, err)
	assert.Equal(t, duplicates.StrategyNone, cfg.DuplicateStrategy)

	_, err = Load(flags(t, "--duplicate-strategy", "guess"))
	assert.Error(t, err)
}

func TestConfig_Scope(t *testing.T) {
	cfg := &Config{Org: "acme", Project: "web"}
	assert.Equal(t, "acme", cfg.Scope().Org)
	assert.Equal(t, "web", cfg.Scope().Project)
}

// ─── ParseRemote ─────────────────────────────────────────────────────────────

func TestParseRemote(t *testing.T) {
	tests := []struct {
		remote  string
		org     string
		project string
	}{
		{"git@github.com:acme/web.git", "acme", "web"},
		{"git@github.com:acme/web", "acme", "web"},
		{"https://github.com/acme/web.git", "acme", "web"},
		{"https://github.com/acme/web", "acme", "web"},
		{"ssh://git@gitlab.example.com:2222/team/service.git", "team", "service"},
		{"not a remote", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		org, project := ParseRemote(tt.remote)
		assert.Equal(t, tt.org, org, tt.remote)
		assert.Equal(t, tt.project, project, tt.remote)
	}
}
