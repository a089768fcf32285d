// Package config implements the config subcommands over the persisted
// extraction config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-page-context/internal/setup"
	"github.com/dtnitsch/llm-page-context/models"
	cfgpkg "github.com/dtnitsch/llm-page-context/pkg/config"
	"github.com/dtnitsch/llm-page-context/pkg/detector"
)

// withManager opens the environment, loads the manager and runs fn.
func withManager(c *cli.Context, fn func(env *setup.Env, m *cfgpkg.Manager) error) error {
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	m, err := env.Manager(c)
	if err != nil {
		return err
	}
	return classify(fn(env, m))
}

// classify maps manager errors caused by bad input to the usage exit code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return err
	}
	if errors.Is(err, cfgpkg.ErrUnknownDomain) || errors.Is(err, cfgpkg.ErrUnknownTemplate) || errors.Is(err, cfgpkg.ErrInvalidMode) {
		return setup.Usagef("%v", err)
	}
	return err
}

// arg returns the i-th positional argument or a usage error naming it.
func arg(c *cli.Context, i int, name string) (string, error) {
	v := strings.TrimSpace(c.Args().Get(i))
	if v == "" {
		return "", setup.Usagef("missing <%s> argument", name)
	}
	return v, nil
}

func mode(s string) (models.ExtractionMode, error) {
	m := models.ExtractionMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", setup.Usagef("invalid mode %q (want readability or text)", s)
	}
	return m, nil
}

// domainArg accepts a bare hostname or a full URL.
func domainArg(s string) string {
	if strings.Contains(s, "://") {
		return cfgpkg.DomainFromURL(s)
	}
	return cfgpkg.NormalizeDomain(s)
}

// render writes v as indented JSON, or YAML with --format yaml.
func render(c *cli.Context, v interface{}) error {
	var data []byte
	var err error
	if strings.EqualFold(c.String("format"), "yaml") {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	fmt.Println(strings.TrimRight(string(data), "\n"))
	return nil
}

func ShowAction(c *cli.Context) error {
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		data, err := m.Export(c.String("format"))
		if err != nil {
			return setup.Usagef("%v", err)
		}
		fmt.Println(strings.TrimRight(string(data), "\n"))
		return nil
	})
}

// ResolveAction prints the merged config an extraction on <domain> would use.
func ResolveAction(c *cli.Context) error {
	domain, err := arg(c, 0, "domain")
	if err != nil {
		return err
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		return render(c, m.Resolve(domainArg(domain)))
	})
}

func SetModeAction(c *cli.Context) error {
	raw, err := arg(c, 0, "mode")
	if err != nil {
		return err
	}
	md, err := mode(raw)
	if err != nil {
		return err
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		if err := m.SetMode(c.Context, md); err != nil {
			return err
		}
		fmt.Printf("Global mode set to %s\n", md)
		return nil
	})
}

func AddSelectorAction(c *cli.Context) error {
	sel, err := arg(c, 0, "selector")
	if err != nil {
		return err
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		if err := m.AddGlobalSelector(c.Context, sel); err != nil {
			return err
		}
		fmt.Printf("Added global selector %q\n", sel)
		return nil
	})
}

func RemoveSelectorAction(c *cli.Context) error {
	sel, err := arg(c, 0, "selector")
	if err != nil {
		return err
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		if err := m.RemoveGlobalSelector(c.Context, sel); err != nil {
			return err
		}
		fmt.Printf("Removed global selector %q\n", sel)
		return nil
	})
}

// SetDomainAction replaces the rule for <domain> with the given flags.
func SetDomainAction(c *cli.Context) error {
	domain, err := arg(c, 0, "domain")
	if err != nil {
		return err
	}
	rule, err := domainRule(c)
	if err != nil {
		return err
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		d := domainArg(domain)
		if err := m.UpsertDomain(c.Context, d, rule); err != nil {
			return err
		}
		fmt.Printf("Saved rule for %s\n", d)
		return nil
	})
}

func domainRule(c *cli.Context) (models.DomainRule, error) {
	rule := models.DomainRule{
		Name:   c.String("name"),
		Remove: c.StringSlice("remove"),
	}
	if c.IsSet("char-threshold") {
		n := c.Int("char-threshold")
		if n < 0 {
			return rule, setup.Usagef("--char-threshold must not be negative")
		}
		rule.Readability.CharThreshold = &n
	}
	if c.IsSet("keep-classes") {
		v := c.Bool("keep-classes")
		rule.Readability.KeepClasses = &v
	}
	if c.IsSet("preserve-links") {
		v := c.Bool("preserve-links")
		rule.Readability.PreserveLinks = &v
	}
	return rule, nil
}

func DeleteDomainAction(c *cli.Context) error {
	domain, err := arg(c, 0, "domain")
	if err != nil {
		return err
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		d := domainArg(domain)
		if err := m.DeleteDomain(c.Context, d); err != nil {
			return err
		}
		fmt.Printf("Deleted rule for %s\n", d)
		return nil
	})
}

func DomainsAction(c *cli.Context) error {
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		domains := m.Domains()
		if len(domains) == 0 {
			fmt.Println("No domain rules configured")
			return nil
		}
		cfg := m.Config()
		fmt.Printf("%-30s %-24s %-8s\n", "Domain", "Name", "Remove")
		fmt.Println(strings.Repeat("-", 64))
		for _, d := range domains {
			rule := cfg.Domains[d]
			fmt.Printf("%-30s %-24s %-8d\n", d, rule.Name, len(rule.Remove))
		}
		fmt.Printf("\nTotal: %d domains\n", len(domains))
		return nil
	})
}

func ApplyTemplateAction(c *cli.Context) error {
	domain, err := arg(c, 0, "domain")
	if err != nil {
		return err
	}
	raw, err := arg(c, 1, "mode")
	if err != nil {
		return err
	}
	md, err := mode(raw)
	if err != nil {
		return err
	}
	key, err := arg(c, 2, "key")
	if err != nil {
		return err
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		d := domainArg(domain)
		if err := m.ApplyTemplate(c.Context, d, md, key); err != nil {
			return err
		}
		fmt.Printf("Applied %s/%s to %s\n", md, key, d)
		return nil
	})
}

// TemplatesAction lists templates for --mode, or for both modes.
func TemplatesAction(c *cli.Context) error {
	modes := []models.ExtractionMode{models.ModeReadability, models.ModeText}
	if c.IsSet("mode") {
		md, err := mode(c.String("mode"))
		if err != nil {
			return err
		}
		modes = []models.ExtractionMode{md}
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		fmt.Printf("%-12s %-16s %-28s %-8s\n", "Mode", "Key", "Name", "Remove")
		fmt.Println(strings.Repeat("-", 68))
		for _, md := range modes {
			templates := m.Templates(md)
			keys := make([]string, 0, len(templates))
			for k := range templates {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				t := templates[k]
				fmt.Printf("%-12s %-16s %-28s %-8d\n", md, k, t.Name, len(t.Remove))
			}
		}
		return nil
	})
}

// ExportAction writes the config to --out, or stdout.
func ExportAction(c *cli.Context) error {
	return withManager(c, func(env *setup.Env, m *cfgpkg.Manager) error {
		data, err := m.Export(c.String("format"))
		if err != nil {
			return setup.Usagef("%v", err)
		}
		out := c.String("out")
		if out == "" {
			fmt.Println(strings.TrimRight(string(data), "\n"))
			return nil
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		env.Logger.Info().Str("file", out).Msg("config exported")
		return nil
	})
}

// ImportAction replaces the config with <file>, reporting fields that fell
// back to defaults.
func ImportAction(c *cli.Context) error {
	path, err := arg(c, 0, "file")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return setup.Usagef("failed to read %s: %v", path, err)
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		issues, err := m.Import(c.Context, data)
		if err != nil {
			return setup.Usagef("import failed: %v", err)
		}
		fmt.Printf("Imported config from %s\n", path)
		if len(issues) > 0 {
			fmt.Printf("%d field(s) reverted to defaults:\n", len(issues))
			for _, issue := range issues {
				fmt.Printf("  - %s\n", issue)
			}
		}
		return nil
	})
}

func ResetAction(c *cli.Context) error {
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		if err := m.Reset(c.Context); err != nil {
			return err
		}
		fmt.Println("Config reset to defaults")
		return nil
	})
}

// SuggestAction guesses a template for <url>; --apply stores it on the domain.
func SuggestAction(c *cli.Context) error {
	rawURL, err := arg(c, 0, "url")
	if err != nil {
		return err
	}
	md, key := detector.SuggestTemplate(rawURL)
	class := detector.Classify(rawURL)
	domain := cfgpkg.DomainFromURL(rawURL)
	if domain == "" {
		return setup.Usagef("cannot derive a domain from %q", rawURL)
	}

	fmt.Printf("Domain:   %s\n", domain)
	fmt.Printf("Type:     %s\n", class.DomainType)
	fmt.Printf("Category: %s\n", class.Category)
	if key == "" {
		fmt.Println("Template: none")
		return nil
	}
	fmt.Printf("Template: %s/%s\n", md, key)
	if !c.Bool("apply") {
		return nil
	}
	return withManager(c, func(_ *setup.Env, m *cfgpkg.Manager) error {
		if err := m.ApplyTemplate(c.Context, domain, md, key); err != nil {
			return err
		}
		fmt.Printf("Applied %s/%s to %s\n", md, key, domain)
		return nil
	})
}
