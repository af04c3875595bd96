package config

// Config is the root configuration for tarpit.
type Config struct {
	Server     ServerConfig     `yaml:"server,omitempty"`
	Detector   DetectorConfig   `yaml:"detector,omitempty"`
	Persona    PersonaConfig    `yaml:"persona,omitempty"`
	LLM        LLMConfig        `yaml:"llm,omitempty"`
	Engagement EngagementConfig `yaml:"engagement,omitempty"`
	Callback   CallbackConfig   `yaml:"callback,omitempty"`
	Session    SessionConfig    `yaml:"session,omitempty"`
	Email      *EmailConfig     `yaml:"email,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP/WebSocket API server.
type ServerConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"` // CORS / websocket origins
	Auth           ServerAuth `yaml:"auth,omitempty"`
}

// ServerAuth configures API authentication. An empty token disables auth.
type ServerAuth struct {
	Token string `yaml:"token,omitempty"`
}

// DetectorConfig tunes the scam classifier.
type DetectorConfig struct {
	Threshold float64 `yaml:"threshold,omitempty"` // scam cutoff in [0,1]
}

// PersonaConfig describes the honeypot character.
type PersonaConfig struct {
	Name              string   `yaml:"name,omitempty"`
	Character         string   `yaml:"character,omitempty"` // extra prompt text
	MaxTokens         int      `yaml:"maxTokens,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	HistoryWindow     int      `yaml:"historyWindow,omitempty"`
	MaxReplySentences int      `yaml:"maxReplySentences,omitempty"`
	TimeoutSeconds    int      `yaml:"timeoutSeconds,omitempty"`
}

// LLMConfig selects the text-generation provider.
type LLMConfig struct {
	Provider string             `yaml:"provider,omitempty"` // "groq" | "openai" | "compat"
	APIKey   string             `yaml:"apiKey,omitempty"`
	Model    string             `yaml:"model,omitempty"`
	Endpoint string             `yaml:"endpoint,omitempty"` // required for "compat"
	Fallback *LLMProviderConfig `yaml:"fallback,omitempty"`
}

// LLMProviderConfig is a secondary provider used for failover.
type LLMProviderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// EngagementConfig tunes the conversation controller.
type EngagementConfig struct {
	WatchThreshold float64 `yaml:"watchThreshold,omitempty"` // minimum score for a reply while MONITORING
	MaxTurns       int     `yaml:"maxTurns,omitempty"`       // scammer messages before the session closes
}

// CallbackConfig points at the external intelligence endpoint.
type CallbackConfig struct {
	URL            string `yaml:"url,omitempty"`
	AuthToken      string `yaml:"authToken,omitempty"`
	MaxAttempts    int    `yaml:"maxAttempts,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// SessionConfig selects session persistence.
type SessionConfig struct {
	Store string `yaml:"store,omitempty"` // "sqlite" | "memory"
}

// EmailConfig enables the IMAP ingest channel when present.
type EmailConfig struct {
	Server      string `yaml:"server"`
	Port        int    `yaml:"port,omitempty"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password,omitempty"`
	Mailbox     string `yaml:"mailbox,omitempty"`
	PollSeconds int    `yaml:"pollSeconds,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
