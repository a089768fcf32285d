// Package analyze implements the analyze command: text statistics that drive
// token estimation and language detection.
package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/internal/common"
	"github.com/dtnitsch/llm-page-context/internal/setup"
	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/analytics"
	"github.com/dtnitsch/llm-page-context/pkg/detector"
	"github.com/dtnitsch/llm-page-context/pkg/tokens"
)

// Report is the analyze command output.
type Report struct {
	Words       int      `json:"words"`
	Language    string   `json:"language,omitempty"`
	CJKRatio    float64  `json:"cjk_ratio"`
	SymbolRatio float64  `json:"symbol_ratio"`
	CodeLike    bool     `json:"code_like"`
	Multiplier  float64  `json:"token_multiplier"`
	Tokens      int      `json:"estimated_tokens"`
	TopKeywords []string `json:"top_keywords"`
}

func AnalyzeAction(c *cli.Context) error {
	raw, err := read(c)
	if err != nil {
		return err
	}
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	report := analyze(contentText(raw), env.Guesser(), env.Model(c), c.Int("keywords"))
	env.Logger.Debug().Int("words", report.Words).Str("language", report.Language).Msg("text analyzed")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func read(c *cli.Context) ([]byte, error) {
	if path := strings.TrimSpace(c.String("file")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, setup.Usagef("failed to read %s: %v", path, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

// contentText accepts plain text, extracted content JSON, or a whole extract
// result with the content nested under "content".
func contentText(raw []byte) string {
	var wrapped struct {
		Content *models.ProcessedContent `json:"content"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Content != nil && wrapped.Content.RawText != "" {
		return wrapped.Content.RawText
	}
	var content models.ProcessedContent
	if json.Unmarshal(raw, &content) == nil && content.RawText != "" {
		return content.RawText
	}
	return string(raw)
}

func analyze(text string, guesser detector.Guesser, model string, keywords int) Report {
	st := common.Stats(text)
	r := Report{
		Words:       analytics.WordCount(text),
		CJKRatio:    st.CJKRatio(),
		SymbolRatio: st.SymbolRatio(),
		CodeLike:    tokens.IsCodeLike(text),
		Multiplier:  tokens.Multiplier(text),
		Tokens:      tokens.Default().EstimateTokens(text, model),
		TopKeywords: analytics.Words(analytics.TopKeywords(text, keywords)),
	}
	if guesser != nil {
		r.Language = guesser.Guess(text)
	}
	return r
}
