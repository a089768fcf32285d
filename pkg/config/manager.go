// Package config resolves the layered extraction policy (global rules, domain
// rules and templates) into the effective config for one extraction call, and
// persists it through a storage.Store.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/storage"
)

// StorageKey is the key the extraction config is stored under.
const StorageKey = "extractionConfig"

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrUnknownDomain   = errors.New("unknown domain")
	ErrInvalidMode     = errors.New("invalid extraction mode")
)

// Manager owns the in-memory extraction config and its persistence.
type Manager struct {
	store  storage.Store
	logger zerolog.Logger

	mu  sync.RWMutex
	cfg models.ExtractionConfig
}

// NewManager returns a manager holding DefaultConfig until Load is called.
func NewManager(store storage.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With().Str("component", "config").Logger(),
		cfg:    DefaultConfig(),
	}
}

// Load reads the stored document and validates it. An absent document leaves
// the defaults in place. Invalid fields are replaced by defaults and logged.
func (m *Manager) Load(ctx context.Context) error {
	data, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("error loading extraction config: %w", err)
	}
	if !ok {
		m.logger.Debug().Msg("no stored extraction config, using defaults")
		m.set(DefaultConfig())
		return nil
	}
	cfg, issues := Validate(data)
	for _, issue := range issues {
		m.logger.Warn().Str("field", issue.Field).Str("reason", issue.Reason).Msg("reverted config field to default")
	}
	m.set(cfg)
	return nil
}

// Save writes the current config as JSON.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.RLock()
	data, err := json.Marshal(m.cfg)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("error encoding extraction config: %w", err)
	}
	if err := m.store.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("error saving extraction config: %w", err)
	}
	return nil
}

// Config returns a deep copy of the current config.
func (m *Manager) Config() models.ExtractionConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneConfig(m.cfg)
}

// Resolve returns the effective config for domain.
func (m *Manager) Resolve(domain string) models.MergedConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Resolve(m.cfg, domain)
}

// Resolve merges the global layer with the rule for domain. The result shares
// no mutable state with cfg.
func Resolve(cfg models.ExtractionConfig, domain string) models.MergedConfig {
	d := NormalizeDomain(domain)
	rule, hasRule := cfg.Domains[d]

	mode := cfg.Mode
	if !mode.Valid() {
		mode = models.ModeReadability
	}

	merged := models.MergedConfig{
		Mode:   mode,
		Domain: d,
	}

	merged.Remove = make([]string, 0, len(cfg.Global.Remove)+len(rule.Remove))
	merged.Remove = append(merged.Remove, cfg.Global.Remove...)
	merged.Remove = append(merged.Remove, rule.Remove...)

	merged.Readability = DefaultReadabilityOptions().Overlay(cfg.Global.Readability)
	if hasRule {
		merged.DomainName = rule.Name
		merged.Readability = merged.Readability.Overlay(rule.Readability)
	}
	merged.Readability = copyReadability(merged.Readability)

	if mode == models.ModeReadability {
		if hasRule && rule.Metadata != nil {
			merged.Metadata = rule.Metadata.Clone()
		} else {
			merged.Metadata = cfg.Global.Metadata.Clone()
		}
	}
	return merged
}

// Update applies fn to a copy of the config, then stores and saves the result.
func (m *Manager) Update(ctx context.Context, fn func(cfg *models.ExtractionConfig) error) error {
	m.mu.Lock()
	next := cloneConfig(m.cfg)
	if err := fn(&next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.cfg = next
	m.mu.Unlock()
	return m.Save(ctx)
}

func (m *Manager) SetMode(ctx context.Context, mode models.ExtractionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return m.Update(ctx, func(cfg *models.ExtractionConfig) error {
		cfg.Mode = mode
		return nil
	})
}

// SetGlobalRemove replaces the global remove list.
func (m *Manager) SetGlobalRemove(ctx context.Context, selectors []string) error {
	return m.Update(ctx, func(cfg *models.ExtractionConfig) error {
		cfg.Global.Remove = cleanSelectors(selectors)
		return nil
	})
}

// AddGlobalSelector appends selector to the global remove list unless it is already there.
func (m *Manager) AddGlobalSelector(ctx context.Context, selector string) error {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return errors.New("empty selector")
	}
	return m.Update(ctx, func(cfg *models.ExtractionConfig) error {
		for _, s := range cfg.Global.Remove {
			if s == selector {
				return nil
			}
		}
		cfg.Global.Remove = append(cfg.Global.Remove, selector)
		return nil
	})
}

// RemoveGlobalSelector drops every occurrence of selector from the global remove list.
func (m *Manager) RemoveGlobalSelector(ctx context.Context, selector string) error {
	selector = strings.TrimSpace(selector)
	return m.Update(ctx, func(cfg *models.ExtractionConfig) error {
		kept := cfg.Global.Remove[:0]
		for _, s := range cfg.Global.Remove {
			if s != selector {
				kept = append(kept, s)
			}
		}
		cfg.Global.Remove = kept
		return nil
	})
}

// UpsertDomain stores rule under the normalized domain, replacing any existing rule.
func (m *Manager) UpsertDomain(ctx context.Context, domain string, rule models.DomainRule) error {
	d := NormalizeDomain(domain)
	if d == "" {
		return fmt.Errorf("%w: empty domain", ErrUnknownDomain)
	}
	rule.Remove = cleanSelectors(rule.Remove)
	rule.Metadata = rule.Metadata.Clone()
	rule.Readability = copyReadability(rule.Readability)
	return m.Update(ctx, func(cfg *models.ExtractionConfig) error {
		if cfg.Domains == nil {
			cfg.Domains = map[string]models.DomainRule{}
		}
		cfg.Domains[d] = rule
		return nil
	})
}

func (m *Manager) DeleteDomain(ctx context.Context, domain string) error {
	d := NormalizeDomain(domain)
	return m.Update(ctx, func(cfg *models.ExtractionConfig) error {
		if _, ok := cfg.Domains[d]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDomain, d)
		}
		delete(cfg.Domains, d)
		return nil
	})
}

// Domains returns the configured domains in sorted order.
func (m *Manager) Domains() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.cfg.Domains))
	for d := range m.cfg.Domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Templates returns the templates available for mode.
func (m *Manager) Templates(mode models.ExtractionMode) map[string]models.Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]models.Template{}
	for k, t := range m.cfg.Templates[mode] {
		out[k] = cloneTemplate(t)
	}
	return out
}

// ApplyTemplate copies the remove list and metadata config of a template onto
// the domain rule, keeping the rule's name and readability options. Text-mode
// templates carry no metadata.
func (m *Manager) ApplyTemplate(ctx context.Context, domain string, mode models.ExtractionMode, key string) error {
	d := NormalizeDomain(domain)
	if d == "" {
		return fmt.Errorf("%w: empty domain", ErrUnknownDomain)
	}
	return m.Update(ctx, func(cfg *models.ExtractionConfig) error {
		tpl, ok := cfg.Templates[mode][key]
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrUnknownTemplate, mode, key)
		}
		if cfg.Domains == nil {
			cfg.Domains = map[string]models.DomainRule{}
		}
		rule := cfg.Domains[d]
		if rule.Name == "" {
			rule.Name = tpl.Name
		}
		rule.Remove = copyStrings(tpl.Remove)
		rule.Metadata = nil
		if mode == models.ModeReadability {
			rule.Metadata = tpl.Metadata.Clone()
		}
		cfg.Domains[d] = rule
		return nil
	})
}

// Export renders the current config as "json" (indented) or "yaml".
func (m *Manager) Export(format string) ([]byte, error) {
	cfg := m.Config()
	switch strings.ToLower(format) {
	case "", "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error encoding config: %w", err)
		}
		return data, nil
	case "yaml", "yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("error encoding config: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Import replaces the config with a JSON or YAML document. The document goes
// through Validate, so malformed fields fall back to defaults.
func (m *Manager) Import(ctx context.Context, data []byte) ([]ValidationIssue, error) {
	raw, err := toJSON(data)
	if err != nil {
		return nil, err
	}
	cfg, issues := Validate(raw)
	for _, issue := range issues {
		m.logger.Warn().Str("field", issue.Field).Str("reason", issue.Reason).Msg("imported config field reverted to default")
	}
	m.set(cfg)
	return issues, m.Save(ctx)
}

// Reset restores and saves DefaultConfig.
func (m *Manager) Reset(ctx context.Context) error {
	m.set(DefaultConfig())
	return m.Save(ctx)
}

func (m *Manager) set(cfg models.ExtractionConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// toJSON passes JSON through and converts YAML to JSON.
func toJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '{' {
		return trimmed, nil
	}
	var doc interface{}
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("error parsing config document: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error converting YAML config: %w", err)
	}
	return out, nil
}

func cleanSelectors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func copyReadability(o models.ReadabilityOptions) models.ReadabilityOptions {
	if o.CharThreshold != nil {
		o.CharThreshold = intPtr(*o.CharThreshold)
	}
	if o.KeepClasses != nil {
		o.KeepClasses = boolPtr(*o.KeepClasses)
	}
	if o.PreserveLinks != nil {
		o.PreserveLinks = boolPtr(*o.PreserveLinks)
	}
	if o.MaxElemsToDivide != nil {
		o.MaxElemsToDivide = intPtr(*o.MaxElemsToDivide)
	}
	return o
}

// copyStrings copies s, keeping nil and empty slices distinct.
func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

func cloneTemplate(t models.Template) models.Template {
	t.Remove = copyStrings(t.Remove)
	t.Metadata = t.Metadata.Clone()
	return t
}

func cloneConfig(cfg models.ExtractionConfig) models.ExtractionConfig {
	out := cfg
	out.Global.Remove = copyStrings(cfg.Global.Remove)
	out.Global.Metadata = cfg.Global.Metadata.Clone()
	out.Global.Readability = copyReadability(cfg.Global.Readability)

	out.Domains = make(map[string]models.DomainRule, len(cfg.Domains))
	for d, r := range cfg.Domains {
		r.Remove = copyStrings(r.Remove)
		r.Metadata = r.Metadata.Clone()
		r.Readability = copyReadability(r.Readability)
		out.Domains[d] = r
	}

	out.Templates = make(map[models.ExtractionMode]map[string]models.Template, len(cfg.Templates))
	for mode, entries := range cfg.Templates {
		out.Templates[mode] = make(map[string]models.Template, len(entries))
		for k, t := range entries {
			out.Templates[mode][k] = cloneTemplate(t)
		}
	}
	return out
}
