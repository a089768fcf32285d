package config

import "github.com/dtnitsch/llm-page-context/models"

// defaultRemoveSelectors are non-content regions removed on every page.
var defaultRemoveSelectors = []string{
	"nav",
	"body > header",
	".site-header",
	"footer",
	"aside",
	"noscript",
	"iframe",
	"svg",
	"form",
	"[role='navigation']",
	"[role='banner']",
	"[role='contentinfo']",
	"[role='complementary']",
	"[aria-hidden='true']",
	".ad",
	".ads",
	".advert",
	".advertisement",
	".ad-container",
	".sponsored",
	".cookie-banner",
	".cookie-consent",
	"#cookie-notice",
	".newsletter",
	".subscribe",
	".social-share",
	".share-buttons",
	".related-posts",
	".recommended",
	".comments",
	"#comments",
	".sidebar",
	"#sidebar",
	".popup",
	".modal",
	".breadcrumb",
	".breadcrumbs",
	".skip-link",
}

func defaultMetadataFields() []models.MetadataField {
	return []models.MetadataField{
		{Key: "author", Name: "Author", Selector: "[rel='author'], .author, .byline, [itemprop='author']", Enabled: true, IsPredefined: true},
		{Key: "date", Name: "Published", Selector: "time[datetime], .published, .post-date, [itemprop='datePublished']", Enabled: true, IsPredefined: true},
		{Key: "tags", Name: "Tags", Selector: "[rel='tag'], .tags a, .post-tags a", Enabled: true, IsPredefined: true},
		{Key: "category", Name: "Category", Selector: ".category, [itemprop='articleSection']", Enabled: false, IsPredefined: true},
	}
}

// DefaultMetadataConfig is disabled out of the box; templates and domain rules turn it on.
func DefaultMetadataConfig() *models.MetadataConfig {
	return &models.MetadataConfig{
		Enabled:   false,
		Selectors: defaultMetadataFields(),
		Format:    DefaultMetadataFormat(),
	}
}

func DefaultMetadataFormat() models.MetadataFormat {
	return models.MetadataFormat{
		Template:     "Author: {author} | Published: {date} | Tags: {tags}",
		Separator:    ", ",
		IncludeEmpty: false,
	}
}

func DefaultReadabilityOptions() models.ReadabilityOptions {
	return models.ReadabilityOptions{
		CharThreshold:    intPtr(models.DefaultCharThreshold),
		KeepClasses:      boolPtr(false),
		PreserveLinks:    boolPtr(true),
		MaxElemsToDivide: intPtr(models.DefaultMaxElemsToDivide),
	}
}

func defaultTemplates() map[models.ExtractionMode]map[string]models.Template {
	enabled := func(format string, fields ...models.MetadataField) *models.MetadataConfig {
		return &models.MetadataConfig{
			Enabled:   true,
			Selectors: fields,
			Format: models.MetadataFormat{
				Template:  format,
				Separator: ", ",
			},
		}
	}
	field := func(key, name, selector string) models.MetadataField {
		return models.MetadataField{Key: key, Name: name, Selector: selector, Enabled: true, IsPredefined: true}
	}

	return map[models.ExtractionMode]map[string]models.Template{
		models.ModeReadability: {
			"news": {
				Name:   "News article",
				Remove: []string{".paywall", ".live-updates-banner", ".most-read", ".trending"},
				Metadata: enabled("Author: {author} | Published: {date} | Section: {section}",
					field("author", "Author", "[rel='author'], .byline, [itemprop='author']"),
					field("date", "Published", "time[datetime], [itemprop='datePublished']"),
					field("section", "Section", "[itemprop='articleSection'], .section-name"),
				),
			},
			"blog": {
				Name:   "Blog post",
				Remove: []string{".author-bio", ".post-navigation", ".wp-block-buttons"},
				Metadata: enabled("Author: {author} | Date: {date} | Tags: {tags}",
					field("author", "Author", ".author, .byline, [rel='author']"),
					field("date", "Date", "time[datetime], .post-date, .entry-date"),
					field("tags", "Tags", "[rel='tag'], .tags a, .post-tags a"),
				),
			},
			"docs": {
				Name:   "Documentation",
				Remove: []string{".toc", ".table-of-contents", ".edit-this-page", ".pagination-nav", ".version-banner"},
				Metadata: enabled("Version: {version} | Updated: {updated}",
					field("version", "Version", ".version, [data-version]"),
					field("updated", "Updated", ".last-updated, time[datetime]"),
				),
			},
			"forum": {
				Name:   "Forum thread",
				Remove: []string{".signature", ".user-badges", ".vote-buttons", ".reply-form"},
				Metadata: enabled("Asked by: {author} | Tags: {tags}",
					field("author", "Author", ".post-author, .user-details a"),
					field("tags", "Tags", ".post-tag, .tags a"),
				),
			},
		},
		models.ModeText: {
			"minimal": {
				Name:   "Minimal cleanup",
				Remove: []string{},
			},
			"aggressive": {
				Name:   "Aggressive cleanup",
				Remove: []string{"[class*='promo']", "[class*='banner']", "[id*='banner']", "[class*='widget']", "table.layout"},
			},
		},
	}
}

// DefaultConfig returns a fresh, fully populated extraction config.
func DefaultConfig() models.ExtractionConfig {
	return models.ExtractionConfig{
		Version: models.CurrentConfigVersion,
		Mode:    models.ModeReadability,
		Global: models.GlobalRule{
			Remove:      append([]string(nil), defaultRemoveSelectors...),
			Metadata:    DefaultMetadataConfig(),
			Readability: DefaultReadabilityOptions(),
		},
		Domains:   map[string]models.DomainRule{},
		Templates: defaultTemplates(),
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
