// Package parser turns isolated content into ordered, typed blocks, either
// from line-structured text (Segment) or by walking content HTML (BlocksFromHTML).
package parser

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/llm-page-context/models"
)

const blockSelector = "h1,h2,h3,h4,h5,h6,p,ul,ol,pre,blockquote,table"

// containers own their descendants; a block nested inside one is not emitted twice.
const containerSelector = "ul,ol,pre,blockquote,table"

// BlocksFromHTML walks content HTML in document order and maps headings,
// paragraphs, lists, code, quotes and tables onto blocks.
func BlocksFromHTML(content string) ([]models.ContentBlock, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("error parsing content HTML: %w", err)
	}

	var blocks []models.ContentBlock
	add := func(b models.ContentBlock) {
		b.Position = len(blocks)
		b.ID = fmt.Sprintf("block-%d", b.Position)
		blocks = append(blocks, b)
	}

	doc.Find(blockSelector).Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered(containerSelector).Length() > 0 {
			return
		}
		tag := goquery.NodeName(s)

		switch tag {
		case "table":
			if text := extractTable(s); text != "" {
				add(models.ContentBlock{Type: models.BlockTable, Content: text})
			}

		case "pre":
			if code, lang := extractCodeBlock(s); code != "" {
				add(models.ContentBlock{Type: models.BlockCode, Content: code, Language: lang})
			}

		case "ul", "ol":
			var items []string
			s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
				if text := normalizeText(li.Text()); text != "" {
					items = append(items, text)
				}
			})
			if len(items) > 0 {
				add(models.ContentBlock{Type: models.BlockList, Content: strings.Join(items, "\n")})
			}

		case "blockquote":
			if text := normalizeText(s.Text()); text != "" {
				add(models.ContentBlock{Type: models.BlockQuote, Content: text})
			}

		case "p":
			if text := normalizeText(s.Text()); text != "" {
				add(models.ContentBlock{Type: models.BlockParagraph, Content: text})
			}

		default:
			if text := normalizeText(s.Text()); text != "" {
				add(models.ContentBlock{Type: models.BlockHeading, Content: text, Level: int(tag[1] - '0')})
			}
		}
	})

	return blocks, nil
}

// normalizeText cleans up a string by trimming space and removing excess newlines.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}

// extractTable renders rows as "a | b | c", header row first.
func extractTable(s *goquery.Selection) string {
	var rows []string
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, normalizeText(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		row := strings.Join(cells, " | ")
		if strings.Trim(row, " |") != "" {
			rows = append(rows, row)
		}
	})
	return strings.Join(rows, "\n")
}

func extractCodeBlock(s *goquery.Selection) (string, string) {
	codeSel := s.Find("code").First()
	target := codeSel
	if codeSel.Length() == 0 {
		target = s
	}

	code := strings.Trim(target.Text(), "\n")
	if strings.TrimSpace(code) == "" {
		return "", ""
	}

	var lang string
	if class, ok := codeSel.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			if strings.HasPrefix(c, "language-") {
				lang = strings.TrimPrefix(c, "language-")
				break
			}
		}
	}
	return code, lang
}
