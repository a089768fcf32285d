// Package tokens implements the tokens subcommands: estimate, truncate and
// chunk over text read from --file or stdin.
package tokens

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/internal/setup"
	tokpkg "github.com/dtnitsch/llm-page-context/pkg/tokens"
)

// Estimate is the report printed by the estimate command.
type Estimate struct {
	Model     string `json:"model"`
	Chars     int    `json:"chars"`
	Estimated int    `json:"estimated_tokens"`
	Exact     *int   `json:"exact_tokens,omitempty"`
	Budget    int    `json:"budget"`
	Fits      bool   `json:"fits"`
	CodeLike  bool   `json:"code_like"`
}

func readInput(c *cli.Context, stdin io.Reader) (string, error) {
	if path := strings.TrimSpace(c.String("file")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", setup.Usagef("failed to read %s: %v", path, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// model is --model, else the model from config.yaml.
func model(c *cli.Context) (string, error) {
	if m := strings.TrimSpace(c.String("model")); m != "" {
		return m, nil
	}
	env, err := setup.Open(c)
	if err != nil {
		return "", err
	}
	defer env.Close()
	return env.Model(c), nil
}

func maxTokens(c *cli.Context) (int, error) {
	n := c.Int("max-tokens")
	if n < 0 {
		return 0, setup.Usagef("--max-tokens must not be negative")
	}
	return n, nil
}

// estimate measures text against maxTokens (0 means the model's input budget).
// A non-nil counter adds an exact count.
func estimate(e *tokpkg.Estimator, counter tokpkg.Counter, text, model string, maxTokens int) (Estimate, error) {
	budget := maxTokens
	if budget <= 0 {
		budget = e.Rule(model).InputBudget()
	}
	est := Estimate{
		Model:     model,
		Chars:     utf8.RuneCountInString(text),
		Estimated: e.EstimateTokens(text, model),
		Budget:    budget,
		CodeLike:  tokpkg.IsCodeLike(text),
	}
	est.Fits = est.Estimated <= budget
	if counter != nil {
		n, err := counter.Count(text, model)
		if err != nil {
			return est, fmt.Errorf("exact count failed: %w", err)
		}
		est.Exact = &n
		est.Fits = n <= budget
	}
	return est, nil
}

func EstimateAction(c *cli.Context) error {
	text, err := readInput(c, os.Stdin)
	if err != nil {
		return err
	}
	m, err := model(c)
	if err != nil {
		return err
	}
	limit, err := maxTokens(c)
	if err != nil {
		return err
	}
	var counter tokpkg.Counter
	if c.Bool("exact") {
		counter = tokpkg.NewTiktokenCounter()
	}
	est, err := estimate(tokpkg.Default(), counter, text, m, limit)
	if err != nil {
		return cli.Exit(err.Error(), setup.ExitExtraction)
	}
	data, err := json.MarshalIndent(est, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func TruncateAction(c *cli.Context) error {
	text, err := readInput(c, os.Stdin)
	if err != nil {
		return err
	}
	m, err := model(c)
	if err != nil {
		return err
	}
	limit, err := maxTokens(c)
	if err != nil {
		return err
	}
	fmt.Print(tokpkg.Default().TruncateToTokenLimit(text, limit, m))
	return nil
}

// ChunkAction prints the chunks as JSON, or as delimited text with --format text.
func ChunkAction(c *cli.Context) error {
	text, err := readInput(c, os.Stdin)
	if err != nil {
		return err
	}
	m, err := model(c)
	if err != nil {
		return err
	}
	limit, err := maxTokens(c)
	if err != nil {
		return err
	}
	chunks := tokpkg.Default().SplitChunks(text, limit, m, c.Int("overlap"))
	return writeChunks(os.Stdout, c.String("format"), chunks)
}

func writeChunks(w io.Writer, format string, chunks []tokpkg.Chunk) error {
	if strings.EqualFold(format, "text") {
		for i, ch := range chunks {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "--- chunk %d/%d (%d tokens) ---\n%s\n", i+1, len(chunks), ch.Tokens, ch.Text)
		}
		return nil
	}
	if chunks == nil {
		chunks = []tokpkg.Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
