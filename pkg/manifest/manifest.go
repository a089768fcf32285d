package manifest

// SummaryManifest is a lightweight overview of an extraction run: status,
// size and top keywords per target, without the extracted content.
type SummaryManifest struct {
	GeneratedAt       string          `json:"generated_at" yaml:"generated_at"`
	TotalTargets      int             `json:"total_targets" yaml:"total_targets"`
	Successful        int             `json:"successful" yaml:"successful"`
	Failed            int             `json:"failed" yaml:"failed"`
	AggregateKeywords []string        `json:"aggregate_keywords" yaml:"aggregate_keywords"`
	Results           []TargetSummary `json:"results" yaml:"results"`
}

// TargetSummary describes one URL or file.
type TargetSummary struct {
	Target          string   `json:"target" yaml:"target"`
	Status          string   `json:"status" yaml:"status"` // "success" or "error"
	Method          string   `json:"method,omitempty" yaml:"method,omitempty"`
	ErrorType       string   `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	ErrorMessage    string   `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Title           string   `json:"title,omitempty" yaml:"title,omitempty"`
	Language        string   `json:"language,omitempty" yaml:"language,omitempty"`
	WordCount       int      `json:"word_count,omitempty" yaml:"word_count,omitempty"`
	Blocks          int      `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	EstimatedTokens int      `json:"estimated_tokens,omitempty" yaml:"estimated_tokens,omitempty"`
	Chunks          int      `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	TopKeywords     []string `json:"top_keywords,omitempty" yaml:"top_keywords,omitempty"`
}
