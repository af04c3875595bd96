package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}
	if cfg.Server.Bind == "custom" && cfg.Server.CustomBindHost == "" {
		issues = append(issues, ValidationIssue{
			Path:    "server.customBindHost",
			Message: "required when server.bind is custom",
		})
	}

	if cfg.Detector.Threshold < 0 || cfg.Detector.Threshold > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "detector.threshold",
			Message: fmt.Sprintf("must be in [0,1], got %v", cfg.Detector.Threshold),
		})
	}

	if cfg.Engagement.WatchThreshold < 0 || cfg.Engagement.WatchThreshold > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "engagement.watchThreshold",
			Message: fmt.Sprintf("must be in [0,1], got %v", cfg.Engagement.WatchThreshold),
		})
	}
	if cfg.Engagement.MaxTurns < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "engagement.maxTurns",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Engagement.MaxTurns),
		})
	}

	validProviders := []string{"groq", "openai", "compat"}
	if cfg.LLM.Provider != "" && !slices.Contains(validProviders, cfg.LLM.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "llm.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.LLM.Provider),
		})
	}
	if cfg.LLM.Provider == "compat" && cfg.LLM.Endpoint == "" {
		issues = append(issues, ValidationIssue{
			Path:    "llm.endpoint",
			Message: "required when llm.provider is compat",
		})
	}
	if fb := cfg.LLM.Fallback; fb != nil {
		if fb.Provider != "" && !slices.Contains(validProviders, fb.Provider) {
			issues = append(issues, ValidationIssue{
				Path:    "llm.fallback.provider",
				Message: fmt.Sprintf("must be one of %v, got %q", validProviders, fb.Provider),
			})
		}
	}

	if cfg.Callback.MaxAttempts < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "callback.maxAttempts",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Callback.MaxAttempts),
		})
	}

	validStores := []string{"sqlite", "memory"}
	if cfg.Session.Store != "" && !slices.Contains(validStores, cfg.Session.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "session.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Session.Store),
		})
	}

	if cfg.Email != nil {
		if cfg.Email.Server == "" {
			issues = append(issues, ValidationIssue{
				Path:    "email.server",
				Message: "server is required",
			})
		}
		if cfg.Email.Username == "" {
			issues = append(issues, ValidationIssue{
				Path:    "email.username",
				Message: "username is required",
			})
		}
		if cfg.Email.Port < 0 || cfg.Email.Port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    "email.port",
				Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Email.Port),
			})
		}
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
