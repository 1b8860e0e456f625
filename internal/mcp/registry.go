// Package mcp implements the tool protocol layer: the provider
// registry, the approval store and the handler the session loop calls
// for every model-requested action.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// ExecutorFunc runs one builtin tool and returns its result text.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Provider is a registered tool provider together with its discovered
// tools and, for builtins, the in-process handlers.
type Provider struct {
	Config   domain.ProviderConfig
	Tools    []domain.ToolSchema
	handlers map[string]ExecutorFunc
}

// Registry is the authoritative mapping from tool name to provider.
// All mutation rebuilds the name index before returning.
type Registry struct {
	mu        sync.RWMutex
	providers []*Provider          // registration order, last wins on name conflict
	index     map[string]*Provider // tool name -> owning provider
	invoker   *Invoker
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. The invoker is used for
// external provider discovery and execution.
func NewRegistry(invoker *Invoker, logger *slog.Logger) *Registry {
	return &Registry{
		index:   make(map[string]*Provider),
		invoker: invoker,
		logger:  logger,
	}
}

// RegisterBuiltin registers an in-process provider with its tool
// schemas and handlers.
func (r *Registry) RegisterBuiltin(cfg domain.ProviderConfig, tools []domain.ToolSchema, handlers map[string]ExecutorFunc) error {
	if err := validateProvider(cfg); err != nil {
		return err
	}
	if !cfg.Builtin() {
		return fmt.Errorf("provider %s is not builtin: %w", cfg.Name, domain.ErrValidation)
	}
	for _, t := range tools {
		if handlers[t.Name] == nil {
			return fmt.Errorf("builtin tool %s has no handler: %w", t.Name, domain.ErrValidation)
		}
	}
	r.register(&Provider{Config: cfg, Tools: tools, handlers: handlers})
	return nil
}

// RegisterExternal registers an HTTP provider, discovering its tool
// list from the provider's tools endpoint. Discovery failure is logged
// and the provider is registered with zero tools; a later Refresh can
// pick its tools up once the endpoint recovers.
func (r *Registry) RegisterExternal(ctx context.Context, cfg domain.ProviderConfig) error {
	if err := validateProvider(cfg); err != nil {
		return err
	}
	if cfg.Builtin() {
		return fmt.Errorf("provider %s is builtin, not external: %w", cfg.Name, domain.ErrValidation)
	}

	tools, err := r.discover(ctx, cfg)
	if err != nil {
		r.logger.Warn("tool discovery failed, registering provider with zero tools",
			"provider", cfg.Name, "url", cfg.URL, "error", err)
		tools = nil
	}
	r.register(&Provider{Config: cfg, Tools: tools})
	return nil
}

func (r *Registry) discover(ctx context.Context, cfg domain.ProviderConfig) ([]domain.ToolSchema, error) {
	var tools []domain.ToolSchema
	op := func() error {
		var err error
		tools, err = r.invoker.DiscoverTools(ctx, cfg)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return tools, nil
}

// Refresh re-runs discovery for every enabled external provider that
// currently contributes zero tools.
func (r *Registry) Refresh(ctx context.Context) {
	r.mu.RLock()
	var stale []domain.ProviderConfig
	for _, p := range r.providers {
		if !p.Config.Builtin() && p.Config.Enabled && len(p.Tools) == 0 {
			stale = append(stale, p.Config)
		}
	}
	r.mu.RUnlock()

	for _, cfg := range stale {
		tools, err := r.discover(ctx, cfg)
		if err != nil {
			r.logger.Warn("tool discovery still failing", "provider", cfg.Name, "error", err)
			continue
		}
		r.mu.Lock()
		for _, p := range r.providers {
			if p.Config.Name == cfg.Name {
				p.Tools = tools
				break
			}
		}
		r.rebuildIndex()
		r.mu.Unlock()
		r.logger.Info("tool discovery recovered", "provider", cfg.Name, "tools", len(tools))
	}
}

// register replaces any provider with the same name and moves the new
// registration to the end so its tools win name conflicts.
func (r *Registry) register(p *Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.providers {
		if existing.Config.Name == p.Config.Name {
			r.providers = append(r.providers[:i], r.providers[i+1:]...)
			r.logger.Info("replacing provider registration", "provider", p.Config.Name)
			break
		}
	}
	r.providers = append(r.providers, p)
	r.rebuildIndex()
}

// rebuildIndex recomputes the tool name index. Callers hold the write
// lock.
func (r *Registry) rebuildIndex() {
	index := make(map[string]*Provider)
	for _, p := range r.providers {
		if !p.Config.Enabled {
			continue
		}
		for _, t := range p.Tools {
			if prev, ok := index[t.Name]; ok && prev != p {
				r.logger.Warn("duplicate tool name, last registration wins",
					"tool", t.Name, "kept", p.Config.Name, "shadowed", prev.Config.Name)
			}
			index[t.Name] = p
		}
	}
	r.index = index
}

// SetEnabled toggles a provider and rebuilds the index before
// returning.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.Config.Name == name {
			p.Config.Enabled = enabled
			r.rebuildIndex()
			return nil
		}
	}
	return fmt.Errorf("provider %s: %w", name, domain.ErrNotFound)
}

// ListEnabledTools returns the union of tool schemas from all enabled
// providers, one schema per tool name.
func (r *Registry) ListEnabledTools() []domain.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.index))
	var out []domain.ToolSchema
	for _, p := range r.providers {
		if !p.Config.Enabled {
			continue
		}
		for _, t := range p.Tools {
			if r.index[t.Name] != p {
				continue // shadowed by a later registration
			}
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, t)
		}
	}
	return out
}

// Resolve returns the provider owning a tool name.
func (r *Registry) Resolve(toolName string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.index[toolName]
	if !ok {
		return nil, fmt.Errorf("tool %s: %w", toolName, domain.ErrNotFound)
	}
	return p, nil
}

// Providers returns a snapshot of all registered provider configs.
func (r *Registry) Providers() []domain.ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProviderConfig, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Config)
	}
	return out
}

func validateProvider(cfg domain.ProviderConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("provider name is required: %w", domain.ErrValidation)
	}
	if cfg.URL == "" {
		return fmt.Errorf("provider url is required: %w", domain.ErrValidation)
	}
	if !cfg.ApprovalMode.Valid() {
		return fmt.Errorf("invalid approval mode %q: %w", cfg.ApprovalMode, domain.ErrValidation)
	}
	return nil
}
