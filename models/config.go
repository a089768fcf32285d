// Package models defines the data structures shared by the extraction pipeline:
// the persisted extraction policy, the per-call merged view of it, and the
// content artifacts handed to the prompt builder.
package models

// ExtractionMode selects how the main content of a page is isolated.
type ExtractionMode string

const (
	ModeReadability ExtractionMode = "readability"
	ModeText        ExtractionMode = "text"
)

// Valid reports whether m is a known extraction mode.
func (m ExtractionMode) Valid() bool {
	return m == ModeReadability || m == ModeText
}

// CurrentConfigVersion is the schema version written by Save.
const CurrentConfigVersion = 2

// Readability defaults applied when neither the global nor the domain layer sets a value.
const (
	DefaultCharThreshold    = 500
	DefaultMaxElemsToDivide = 0
)

// ExtractionConfig is the process-wide, persisted extraction policy.
type ExtractionConfig struct {
	Version   int                                    `json:"version" yaml:"version"`
	Mode      ExtractionMode                         `json:"mode" yaml:"mode"`
	Global    GlobalRule                             `json:"global" yaml:"global"`
	Domains   map[string]DomainRule                  `json:"domains" yaml:"domains"`
	Templates map[ExtractionMode]map[string]Template `json:"templates" yaml:"templates"`
}

// GlobalRule applies to every domain.
type GlobalRule struct {
	Remove      []string           `json:"remove" yaml:"remove"`
	Metadata    *MetadataConfig    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Readability ReadabilityOptions `json:"readabilityOptions" yaml:"readabilityOptions"`
}

// DomainRule overrides the global rule for one normalized hostname.
type DomainRule struct {
	Name        string             `json:"name,omitempty" yaml:"name,omitempty"`
	Remove      []string           `json:"remove,omitempty" yaml:"remove,omitempty"`
	Metadata    *MetadataConfig    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Readability ReadabilityOptions `json:"readabilityOptions,omitempty" yaml:"readabilityOptions,omitempty"`
}

// Template is a named preset bundling a remove list and metadata config for one mode.
type Template struct {
	Name     string          `json:"name" yaml:"name"`
	Remove   []string        `json:"remove" yaml:"remove"`
	Metadata *MetadataConfig `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ReadabilityOptions are tuning knobs for the readability path. Fields are
// pointers so a domain rule can leave a knob unset and inherit the global value.
type ReadabilityOptions struct {
	CharThreshold    *int  `json:"charThreshold,omitempty" yaml:"charThreshold,omitempty"`
	KeepClasses      *bool `json:"keepClasses,omitempty" yaml:"keepClasses,omitempty"`
	PreserveLinks    *bool `json:"preserveLinks,omitempty" yaml:"preserveLinks,omitempty"`
	MaxElemsToDivide *int  `json:"maxElemsToDivide,omitempty" yaml:"maxElemsToDivide,omitempty"`
}

// Overlay returns o with every field set in top replacing the corresponding field.
func (o ReadabilityOptions) Overlay(top ReadabilityOptions) ReadabilityOptions {
	if top.CharThreshold != nil {
		o.CharThreshold = top.CharThreshold
	}
	if top.KeepClasses != nil {
		o.KeepClasses = top.KeepClasses
	}
	if top.PreserveLinks != nil {
		o.PreserveLinks = top.PreserveLinks
	}
	if top.MaxElemsToDivide != nil {
		o.MaxElemsToDivide = top.MaxElemsToDivide
	}
	return o
}

// IsZero reports whether no option is set.
func (o ReadabilityOptions) IsZero() bool {
	return o.CharThreshold == nil && o.KeepClasses == nil && o.PreserveLinks == nil && o.MaxElemsToDivide == nil
}

func (o ReadabilityOptions) Threshold() int {
	if o.CharThreshold == nil {
		return DefaultCharThreshold
	}
	return *o.CharThreshold
}

func (o ReadabilityOptions) KeepClassesEnabled() bool {
	return o.KeepClasses != nil && *o.KeepClasses
}

func (o ReadabilityOptions) PreserveLinksEnabled() bool {
	return o.PreserveLinks == nil || *o.PreserveLinks
}

func (o ReadabilityOptions) MaxElems() int {
	if o.MaxElemsToDivide == nil {
		return DefaultMaxElemsToDivide
	}
	return *o.MaxElemsToDivide
}

// MetadataConfig describes which metadata fields to pull from a page and how to render them.
type MetadataConfig struct {
	Enabled   bool            `json:"enabled" yaml:"enabled"`
	Selectors []MetadataField `json:"selectors" yaml:"selectors"`
	Format    MetadataFormat  `json:"format" yaml:"format"`
}

// MetadataField is one configurable metadata selector.
type MetadataField struct {
	Key          string `json:"key" yaml:"key"`
	Name         string `json:"name" yaml:"name"`
	Selector     string `json:"selector" yaml:"selector"`
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	IsPredefined bool   `json:"isPredefined" yaml:"isPredefined"`
}

// MetadataFormat renders extracted field values. Template placeholders use {key}.
type MetadataFormat struct {
	Template     string `json:"template" yaml:"template"`
	Separator    string `json:"separator" yaml:"separator"`
	IncludeEmpty bool   `json:"includeEmpty" yaml:"includeEmpty"`
}

// Clone returns a deep copy so callers can mutate it without touching stored config.
func (m *MetadataConfig) Clone() *MetadataConfig {
	if m == nil {
		return nil
	}
	c := *m
	c.Selectors = append([]MetadataField(nil), m.Selectors...)
	return &c
}

// MergedConfig is the effective policy for one extraction call.
type MergedConfig struct {
	Mode        ExtractionMode     `json:"mode" yaml:"mode"`
	Domain      string             `json:"domain" yaml:"domain"`
	DomainName  string             `json:"domainName,omitempty" yaml:"domainName,omitempty"`
	Remove      []string           `json:"remove" yaml:"remove"`
	Metadata    *MetadataConfig    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Readability ReadabilityOptions `json:"readabilityOptions" yaml:"readabilityOptions"`
}
