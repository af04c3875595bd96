package llm

import (
	"fmt"
	"sync"

	"github.com/tarpitlabs/tarpit/internal/config"
	"github.com/tarpitlabs/tarpit/internal/logging"
)

// Registry manages LLM provider clients and resolves model references to
// clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered LLM provider")
}

// Alias maps a model name to a provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match
// is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no LLM provider for model %q", model)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	return names
}

// NewRegistryFromConfig builds a Registry from the llm config section.
// The primary provider becomes the registry fallback; an optional secondary
// provider is registered alongside it for failover.
func NewRegistryFromConfig(cfg config.LLMConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	if c := clientFromEntry(cfg.Provider, cfg.APIKey, cfg.Model, cfg.Endpoint); c != nil {
		reg.Register(c.Name(), c)
		reg.SetFallback(c.Name())
		if cfg.Model != "" {
			reg.Alias(cfg.Model, c.Name())
		}
	}

	if fb := cfg.Fallback; fb != nil {
		if c := clientFromEntry(fb.Provider, fb.APIKey, fb.Model, fb.Endpoint); c != nil {
			reg.Register(c.Name(), c)
			if fb.Model != "" {
				reg.Alias(fb.Model, c.Name())
			}
		}
	}

	return reg
}

func clientFromEntry(provider, apiKey, model, endpoint string) Client {
	switch provider {
	case "groq":
		if apiKey != "" && model != "" {
			return NewGroqClient(apiKey, model)
		}
	case "openai":
		if apiKey != "" && model != "" {
			return NewOpenAIClient(apiKey, model)
		}
	case "compat":
		if endpoint != "" && model != "" {
			return NewOpenAIChatClient("compat", endpoint, apiKey, model)
		}
	}
	return nil
}
