package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dtnitsch/llm-page-context/models"
)

// ValidationIssue records a field that was dropped or replaced by its default.
type ValidationIssue struct {
	Field  string
	Reason string
}

func (v ValidationIssue) String() string {
	return v.Field + ": " + v.Reason
}

var fieldKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type validator struct {
	issues []ValidationIssue
}

func (v *validator) report(field, format string, args ...interface{}) {
	v.issues = append(v.issues, ValidationIssue{Field: field, Reason: fmt.Sprintf(format, args...)})
}

// Validate turns a stored document of any known schema version into a valid
// ExtractionConfig. Fields that fail validation fall back to their defaults
// one by one; the rest of the document is kept. A nil or empty document
// yields DefaultConfig.
func Validate(data []byte) (models.ExtractionConfig, []ValidationIssue) {
	v := &validator{}
	def := DefaultConfig()

	if len(strings.TrimSpace(string(data))) == 0 {
		return def, nil
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		v.report("$", "not a JSON object (%v); using defaults", err)
		return def, v.issues
	}

	version := models.CurrentConfigVersion
	if raw, ok := root["version"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil || version < 1 {
			v.report("version", "invalid version %s", string(raw))
			version = detectVersion(root)
		}
	} else {
		version = detectVersion(root)
	}
	if version < models.CurrentConfigVersion {
		root = migrateV1(root)
	}

	cfg := models.ExtractionConfig{Version: models.CurrentConfigVersion}
	cfg.Mode = v.mode(root["mode"], def.Mode)
	cfg.Global = v.global(root["global"], def.Global)
	cfg.Domains = v.domains(root["domains"])
	cfg.Templates = v.templates(root["templates"], def.Templates)
	return cfg, v.issues
}

// detectVersion treats documents carrying the legacy flat keys as version 1.
func detectVersion(root map[string]json.RawMessage) int {
	for _, legacy := range []string{"removeSelectors", "domainRules", "metadataConfig", "metadataSelectors"} {
		if _, ok := root[legacy]; ok {
			return 1
		}
	}
	return models.CurrentConfigVersion
}

// migrateV1 maps the legacy flat layout onto the layered one:
//
//	{"mode", "removeSelectors", "metadataConfig", "readabilityOptions",
//	 "domainRules": {d: {"name", "removeSelectors", "metadataConfig", "readabilityOptions"}}}
func migrateV1(root map[string]json.RawMessage) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	if raw, ok := root["mode"]; ok {
		out["mode"] = raw
	}
	if raw, ok := root["templates"]; ok {
		out["templates"] = raw
	}

	global := map[string]json.RawMessage{}
	copyKey(root, global, "removeSelectors", "remove")
	copyKey(root, global, "metadataConfig", "metadata")
	copyKey(root, global, "readabilityOptions", "readabilityOptions")
	if raw, ok := root["metadataSelectors"]; ok {
		if _, has := global["metadata"]; !has {
			global["metadata"], _ = json.Marshal(map[string]json.RawMessage{"selectors": raw})
		}
	}
	if raw, ok := root["global"]; ok {
		out["global"] = raw
	} else if len(global) > 0 {
		out["global"], _ = json.Marshal(global)
	}

	domainsKey := "domainRules"
	if _, ok := root[domainsKey]; !ok {
		domainsKey = "domains"
	}
	var legacyDomains map[string]map[string]json.RawMessage
	if raw, ok := root[domainsKey]; ok && json.Unmarshal(raw, &legacyDomains) == nil {
		domains := map[string]map[string]json.RawMessage{}
		for name, rule := range legacyDomains {
			d := map[string]json.RawMessage{}
			copyKey(rule, d, "name", "name")
			copyKey(rule, d, "removeSelectors", "remove")
			copyKey(rule, d, "remove", "remove")
			copyKey(rule, d, "metadataConfig", "metadata")
			copyKey(rule, d, "metadata", "metadata")
			copyKey(rule, d, "readabilityOptions", "readabilityOptions")
			domains[name] = d
		}
		out["domains"], _ = json.Marshal(domains)
	} else if ok {
		out["domains"] = root[domainsKey]
	}
	return out
}

func copyKey(from, to map[string]json.RawMessage, fromKey, toKey string) {
	if raw, ok := from[fromKey]; ok {
		to[toKey] = raw
	}
}

func (v *validator) mode(raw json.RawMessage, def models.ExtractionMode) models.ExtractionMode {
	if raw == nil {
		return def
	}
	var m models.ExtractionMode
	if err := json.Unmarshal(raw, &m); err != nil || !m.Valid() {
		v.report("mode", "unknown mode %s", string(raw))
		return def
	}
	return m
}

func (v *validator) global(raw json.RawMessage, def models.GlobalRule) models.GlobalRule {
	if raw == nil {
		return def
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		v.report("global", "not an object")
		return def
	}

	g := models.GlobalRule{}
	if r, ok := obj["remove"]; ok {
		g.Remove = v.selectors("global.remove", r, def.Remove)
	} else {
		g.Remove = def.Remove
	}
	if r, ok := obj["metadata"]; ok && string(r) != "null" {
		g.Metadata = v.metadata("global.metadata", r, def.Metadata)
	} else if !ok {
		g.Metadata = def.Metadata
	}
	baseline := def.Readability
	if r, ok := obj["readabilityOptions"]; ok {
		g.Readability = baseline.Overlay(v.readability("global.readabilityOptions", r))
	} else {
		g.Readability = baseline
	}
	return g
}

func (v *validator) selectors(field string, raw json.RawMessage, def []string) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		v.report(field, "not a list of selectors")
		return copyStrings(def)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			v.report(fmt.Sprintf("%s[%d]", field, i), "not a string")
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (v *validator) metadata(field string, raw json.RawMessage, def *models.MetadataConfig) *models.MetadataConfig {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		v.report(field, "not an object")
		return def.Clone()
	}
	fallback := DefaultMetadataConfig()
	if def != nil {
		fallback = def.Clone()
	}

	m := &models.MetadataConfig{}
	m.Enabled = v.boolField(field+".enabled", obj["enabled"], fallback.Enabled)

	if r, ok := obj["selectors"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(r, &items); err != nil {
			v.report(field+".selectors", "not a list")
			m.Selectors = fallback.Selectors
		} else {
			m.Selectors = make([]models.MetadataField, 0, len(items))
			seen := map[string]bool{}
			for i, item := range items {
				f, ok := v.metadataField(fmt.Sprintf("%s.selectors[%d]", field, i), item)
				if !ok {
					continue
				}
				if seen[f.Key] {
					v.report(fmt.Sprintf("%s.selectors[%d]", field, i), "duplicate key %q", f.Key)
					continue
				}
				seen[f.Key] = true
				m.Selectors = append(m.Selectors, f)
			}
		}
	} else {
		m.Selectors = fallback.Selectors
	}

	m.Format = fallback.Format
	if r, ok := obj["format"]; ok {
		var f map[string]json.RawMessage
		if err := json.Unmarshal(r, &f); err != nil {
			v.report(field+".format", "not an object")
		} else {
			m.Format.Template = v.stringField(field+".format.template", f["template"], fallback.Format.Template)
			m.Format.Separator = v.stringField(field+".format.separator", f["separator"], fallback.Format.Separator)
			m.Format.IncludeEmpty = v.boolField(field+".format.includeEmpty", f["includeEmpty"], fallback.Format.IncludeEmpty)
		}
	}
	return m
}

func (v *validator) metadataField(field string, raw json.RawMessage) (models.MetadataField, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		v.report(field, "not an object")
		return models.MetadataField{}, false
	}
	f := models.MetadataField{}
	f.Key = strings.TrimSpace(v.stringField(field+".key", obj["key"], ""))
	if !fieldKeyPattern.MatchString(f.Key) {
		v.report(field+".key", "invalid key %q", f.Key)
		return models.MetadataField{}, false
	}
	f.Name = v.stringField(field+".name", obj["name"], f.Key)
	f.Selector = strings.TrimSpace(v.stringField(field+".selector", obj["selector"], ""))
	f.Enabled = v.boolField(field+".enabled", obj["enabled"], true)
	f.IsPredefined = v.boolField(field+".isPredefined", obj["isPredefined"], false)
	return f, true
}

// readability decodes only the knobs present and valid; the caller overlays them.
func (v *validator) readability(field string, raw json.RawMessage) models.ReadabilityOptions {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		v.report(field, "not an object")
		return models.ReadabilityOptions{}
	}
	o := models.ReadabilityOptions{}
	if r, ok := obj["charThreshold"]; ok {
		o.CharThreshold = v.nonNegativeInt(field+".charThreshold", r)
	}
	if r, ok := obj["maxElemsToDivide"]; ok {
		o.MaxElemsToDivide = v.nonNegativeInt(field+".maxElemsToDivide", r)
	}
	if r, ok := obj["keepClasses"]; ok {
		var b bool
		if err := json.Unmarshal(r, &b); err != nil {
			v.report(field+".keepClasses", "not a boolean")
		} else {
			o.KeepClasses = &b
		}
	}
	if r, ok := obj["preserveLinks"]; ok {
		var b bool
		if err := json.Unmarshal(r, &b); err != nil {
			v.report(field+".preserveLinks", "not a boolean")
		} else {
			o.PreserveLinks = &b
		}
	}
	return o
}

func (v *validator) nonNegativeInt(field string, raw json.RawMessage) *int {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 || n != float64(int(n)) {
		v.report(field, "not a non-negative integer")
		return nil
	}
	i := int(n)
	return &i
}

func (v *validator) domains(raw json.RawMessage) map[string]models.DomainRule {
	out := map[string]models.DomainRule{}
	if raw == nil {
		return out
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		v.report("domains", "not an object")
		return out
	}
	// Keys already in normalized form win over variants such as www. or mixed
	// case; remaining ties go to the lexically first key.
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ei, ej := NormalizeDomain(names[i]) == names[i], NormalizeDomain(names[j]) == names[j]
		if ei != ej {
			return ei
		}
		return names[i] < names[j]
	})
	from := map[string]string{}
	for _, name := range names {
		rr := obj[name]
		field := "domains." + name
		domain := NormalizeDomain(name)
		if domain == "" {
			v.report(field, "empty domain")
			continue
		}
		if prev, ok := from[domain]; ok {
			v.report(field, "duplicates domain %s (kept %q)", domain, prev)
			continue
		}
		var rule map[string]json.RawMessage
		if err := json.Unmarshal(rr, &rule); err != nil {
			v.report(field, "not an object")
			continue
		}
		d := models.DomainRule{}
		d.Name = v.stringField(field+".name", rule["name"], "")
		if r, ok := rule["remove"]; ok {
			d.Remove = v.selectors(field+".remove", r, nil)
		}
		if r, ok := rule["metadata"]; ok && string(r) != "null" {
			d.Metadata = v.metadata(field+".metadata", r, nil)
		}
		if r, ok := rule["readabilityOptions"]; ok {
			d.Readability = v.readability(field+".readabilityOptions", r)
		}
		out[domain] = d
		from[domain] = name
	}
	return out
}

func (v *validator) templates(raw json.RawMessage, def map[models.ExtractionMode]map[string]models.Template) map[models.ExtractionMode]map[string]models.Template {
	if raw == nil {
		return def
	}
	var obj map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		v.report("templates", "not an object of modes")
		return def
	}
	out := map[models.ExtractionMode]map[string]models.Template{}
	for modeName, entries := range obj {
		mode := models.ExtractionMode(modeName)
		if !mode.Valid() {
			v.report("templates."+modeName, "unknown mode")
			continue
		}
		out[mode] = map[string]models.Template{}
		for key, tr := range entries {
			field := "templates." + modeName + "." + key
			var t map[string]json.RawMessage
			if err := json.Unmarshal(tr, &t); err != nil {
				v.report(field, "not an object")
				continue
			}
			tpl := models.Template{}
			tpl.Name = v.stringField(field+".name", t["name"], key)
			if r, ok := t["remove"]; ok {
				tpl.Remove = v.selectors(field+".remove", r, nil)
			}
			if r, ok := t["metadata"]; ok && string(r) != "null" {
				tpl.Metadata = v.metadata(field+".metadata", r, nil)
			}
			out[mode][key] = tpl
		}
	}
	return out
}

func (v *validator) stringField(field string, raw json.RawMessage, def string) string {
	if raw == nil {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		v.report(field, "not a string")
		return def
	}
	return s
}

func (v *validator) boolField(field string, raw json.RawMessage, def bool) bool {
	if raw == nil {
		return def
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		v.report(field, "not a boolean")
		return def
	}
	return b
}
