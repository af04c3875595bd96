package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8799,
			Bind: "loopback",
		},
		Detector: DetectorConfig{
			Threshold: 0.5,
		},
		Persona: PersonaConfig{
			Name:              "Ramesh",
			MaxTokens:         100,
			HistoryWindow:     12,
			MaxReplySentences: 2,
			TimeoutSeconds:    8,
		},
		Engagement: EngagementConfig{
			WatchThreshold: 0.3,
			MaxTurns:       15,
		},
		Callback: CallbackConfig{
			MaxAttempts:    3,
			TimeoutSeconds: 10,
		},
		Session: SessionConfig{
			Store: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
