package readable

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// GoReadability adapts go-shiori/go-readability to Readability.
type GoReadability struct {
	// ClassesToPreserve are kept in addition to the parser's defaults when
	// KeepClasses is off.
	ClassesToPreserve []string
}

// GoReadabilityLoader is the default Loader.
func GoReadabilityLoader() (Readability, error) {
	return GoReadability{}, nil
}

func (g GoReadability) Parse(doc *goquery.Document, pageURL *url.URL, opts Options) (*Article, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return nil, nil
	}

	parser := readability.NewParser()
	if opts.CharThreshold > 0 {
		parser.CharThresholds = opts.CharThreshold
	}
	parser.KeepClasses = opts.KeepClasses
	parser.MaxElemsToParse = opts.MaxElemsToDivide
	if len(g.ClassesToPreserve) > 0 {
		parser.ClassesToPreserve = append(parser.ClassesToPreserve, g.ClassesToPreserve...)
	}
	if pageURL == nil {
		pageURL = &url.URL{}
	}

	article, err := parser.ParseDocument(doc.Nodes[0], pageURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing with readability: %w", err)
	}
	if strings.TrimSpace(article.TextContent) == "" && strings.TrimSpace(article.Content) == "" {
		return nil, nil
	}

	return &Article{
		Title:         article.Title,
		Content:       article.Content,
		TextContent:   article.TextContent,
		Length:        article.Length,
		Excerpt:       article.Excerpt,
		Byline:        article.Byline,
		SiteName:      article.SiteName,
		Lang:          article.Language,
		PublishedTime: article.PublishedTime,
	}, nil
}
