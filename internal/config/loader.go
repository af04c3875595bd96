package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens and keys can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Server.Auth.Token = expandEnvVars(cfg.Server.Auth.Token)
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	if cfg.LLM.Fallback != nil {
		cfg.LLM.Fallback.APIKey = expandEnvVars(cfg.LLM.Fallback.APIKey)
	}
	cfg.Callback.AuthToken = expandEnvVars(cfg.Callback.AuthToken)
	if cfg.Email != nil {
		cfg.Email.Password = expandEnvVars(cfg.Email.Password)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = def.Server.Bind
	}
	if cfg.Detector.Threshold == 0 {
		cfg.Detector.Threshold = def.Detector.Threshold
	}
	if cfg.Persona.Name == "" {
		cfg.Persona.Name = def.Persona.Name
	}
	if cfg.Persona.MaxTokens == 0 {
		cfg.Persona.MaxTokens = def.Persona.MaxTokens
	}
	if cfg.Persona.HistoryWindow == 0 {
		cfg.Persona.HistoryWindow = def.Persona.HistoryWindow
	}
	if cfg.Persona.MaxReplySentences == 0 {
		cfg.Persona.MaxReplySentences = def.Persona.MaxReplySentences
	}
	if cfg.Persona.TimeoutSeconds == 0 {
		cfg.Persona.TimeoutSeconds = def.Persona.TimeoutSeconds
	}
	if cfg.Engagement.WatchThreshold == 0 {
		cfg.Engagement.WatchThreshold = def.Engagement.WatchThreshold
	}
	if cfg.Engagement.MaxTurns == 0 {
		cfg.Engagement.MaxTurns = def.Engagement.MaxTurns
	}
	if cfg.Callback.MaxAttempts == 0 {
		cfg.Callback.MaxAttempts = def.Callback.MaxAttempts
	}
	if cfg.Callback.TimeoutSeconds == 0 {
		cfg.Callback.TimeoutSeconds = def.Callback.TimeoutSeconds
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = def.Session.Store
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = def.Logging.ConsoleStyle
	}
	if cfg.Email != nil {
		if cfg.Email.Port == 0 {
			cfg.Email.Port = 993
		}
		if cfg.Email.Mailbox == "" {
			cfg.Email.Mailbox = "INBOX"
		}
		if cfg.Email.PollSeconds == 0 {
			cfg.Email.PollSeconds = 60
		}
	}
}

// applyEnvOverrides reads TARPIT_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TARPIT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TARPIT_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("TARPIT_AUTH_TOKEN"); v != "" {
		cfg.Server.Auth.Token = v
	}
	if v := os.Getenv("TARPIT_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("TARPIT_CALLBACK_URL"); v != "" {
		cfg.Callback.URL = v
	}
	if v := os.Getenv("TARPIT_CALLBACK_TOKEN"); v != "" {
		cfg.Callback.AuthToken = v
	}
	if v := os.Getenv("TARPIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
