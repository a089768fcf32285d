package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-page-context/internal/common"
	"github.com/dtnitsch/llm-page-context/pkg/manifest"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

func validFormat(f string) bool {
	return f == FormatJSON || f == FormatYAML || f == FormatText
}

// encode marshals v as JSON or YAML. A non-empty fields list keeps only those
// top-level keys. YAML goes through the JSON field names so both formats agree.
func encode(w io.Writer, format, fields string, v interface{}) error {
	var data []byte
	var err error
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(common.FilterFields(v, fields))
	default:
		if strings.TrimSpace(fields) != "" {
			data, err = json.MarshalIndent(common.FilterFields(v, fields), "", "  ")
		} else {
			data, err = json.MarshalIndent(v, "", "  ")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
	return err
}

// writeText renders an Output as prompt text: the chunks when chunking, else
// the (possibly truncated) prompt.
func writeText(w io.Writer, out Output) error {
	if !out.Success {
		_, err := fmt.Fprintf(w, "error (%s): %s\n", out.Kind, out.Error)
		return err
	}
	if len(out.Chunks) > 0 {
		for i, c := range out.Chunks {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "--- chunk %d/%d (%d tokens) ---\n%s\n", i+1, len(out.Chunks), c.Tokens, c.Text)
		}
		return nil
	}
	text := out.Prompt
	if text == "" && out.Content != nil {
		text = out.Content.ToPromptText()
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func writeOutput(w io.Writer, format, fields string, out Output) error {
	if format == FormatText {
		return writeText(w, out)
	}
	return encode(w, format, fields, out)
}

func writeBatch(w io.Writer, format, fields string, results []Output, stats Stats) error {
	if format == FormatText {
		for i, out := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "=== %s ===\n", out.Target)
			if err := writeText(w, out); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "\n%d/%d targets extracted\n", stats.Successful, stats.TotalURLs)
		if len(stats.TopKeywords) > 0 {
			fmt.Fprintf(w, "Top keywords: %s\n", strings.Join(stats.TopKeywords, ", "))
		}
		return nil
	}

	final := FinalOutput{Status: "success", Stats: stats}
	if stats.Failed > 0 {
		final.Status = "partial_failure"
	}
	for _, out := range results {
		if strings.TrimSpace(fields) != "" {
			final.Results = append(final.Results, common.FilterFields(out, fields))
		} else {
			final.Results = append(final.Results, out)
		}
	}
	return encode(w, format, "", final)
}

// summaryManifest condenses outputs into a manifest without content.
func summaryManifest(results []Output, now time.Time, keywords int) manifest.SummaryManifest {
	in := make([]manifest.Result, len(results))
	for i, out := range results {
		in[i] = manifest.Result{
			Target:    out.Target,
			Content:   out.Content,
			Method:    out.Method,
			ErrorType: string(out.Kind),
			Error:     out.Error,
			Tokens:    out.Tokens,
			Chunks:    len(out.Chunks),
		}
		if !out.Success && in[i].Error == "" {
			in[i].Error = string(out.Kind)
		}
	}
	return manifest.Generate(in, now, keywords)
}
