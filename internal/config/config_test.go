package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8799, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, 0.5, cfg.Detector.Threshold)
	assert.Equal(t, "Ramesh", cfg.Persona.Name)
	assert.Equal(t, 15, cfg.Engagement.MaxTurns)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Nil(t, cfg.Email)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
persona:
  name: Sunita
llm:
  provider: groq
  apiKey: gsk_test
  model: llama-3.3-70b-versatile
email:
  server: imap.example.com
  username: bait@example.com
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "Sunita", cfg.Persona.Name)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.Engagement.MaxTurns, "unset fields keep defaults")

	require.NotNil(t, cfg.Email)
	assert.Equal(t, 993, cfg.Email.Port)
	assert.Equal(t, "INBOX", cfg.Email.Mailbox)
	assert.Equal(t, 60, cfg.Email.PollSeconds)
}

func TestLoadExpandsSensitiveEnvRefs(t *testing.T) {
	t.Setenv("TARPIT_TEST_SECRET", "s3cr3t")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: groq
  apiKey: ${TARPIT_TEST_SECRET}
callback:
  authToken: ${TARPIT_UNSET_VAR}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cr3t", cfg.LLM.APIKey)
	assert.Equal(t, "${TARPIT_UNSET_VAR}", cfg.Callback.AuthToken, "unset vars are left as-is")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TARPIT_PORT", "9999")
	t.Setenv("TARPIT_LOG_LEVEL", "DEBUG")
	t.Setenv("TARPIT_CALLBACK_URL", "https://eval.example/report")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "https://eval.example/report", cfg.Callback.URL)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 70000
	cfg.Server.Bind = "everywhere"
	cfg.Detector.Threshold = 1.5
	cfg.LLM.Provider = "bard"
	cfg.Session.Store = "postgres"
	cfg.Logging.Level = "shouty"

	issues := Validate(&cfg)
	paths := make([]string, 0, len(issues))
	for _, i := range issues {
		paths = append(paths, i.Path)
	}

	assert.Contains(t, paths, "server.port")
	assert.Contains(t, paths, "server.bind")
	assert.Contains(t, paths, "detector.threshold")
	assert.Contains(t, paths, "llm.provider")
	assert.Contains(t, paths, "session.store")
	assert.Contains(t, paths, "logging.level")
}

func TestValidateCompatRequiresEndpoint(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "compat"

	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "llm.endpoint", issues[0].Path)
}

func TestValidateDefaultsAreClean(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateEmailSection(t *testing.T) {
	cfg := Defaults()
	cfg.Email = &EmailConfig{}

	issues := Validate(&cfg)
	paths := make([]string, 0, len(issues))
	for _, i := range issues {
		paths = append(paths, i.Path)
	}

	assert.Contains(t, paths, "email.server")
	assert.Contains(t, paths, "email.username")
}

func TestResolvePathsHonorsHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TARPIT_HOME", dir)

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, dir, paths.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(dir, "data", "tarpit.db"), paths.Database)

	require.NoError(t, paths.EnsureDirs())
	info, err := os.Stat(paths.Data)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestConfigPathHelpers(t *testing.T) {
	root := map[string]any{}

	path, err := ParseConfigPath("server.auth.token")
	require.NoError(t, err)

	SetValueAtPath(root, path, "abc")
	got, ok := GetValueAtPath(root, path)
	require.True(t, ok)
	assert.Equal(t, "abc", got)

	assert.True(t, UnsetValueAtPath(root, path))
	_, ok = GetValueAtPath(root, path)
	assert.False(t, ok)

	_, err = ParseConfigPath("server..port")
	assert.Error(t, err)
	_, err = ParseConfigPath("__proto__.x")
	assert.Error(t, err)
}
