package extract

import (
	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/pipeline"
)

// Output is the result for one target (URL or file).
type Output struct {
	Target   string                   `json:"target"`
	Success  bool                     `json:"success"`
	Cached   bool                     `json:"cached,omitempty"`
	Handler  string                   `json:"handler,omitempty"`
	Method   string                   `json:"method,omitempty"`
	Kind     pipeline.ErrorKind       `json:"kind,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Tokens   int                      `json:"tokens,omitempty"`
	Keywords []string                 `json:"keywords,omitempty"`
	Content  *models.ProcessedContent `json:"content,omitempty"`
	Prompt   string                   `json:"prompt,omitempty"` // set when --max-tokens truncates
	Chunks   []ChunkOutput            `json:"chunks,omitempty"`
}

// ChunkOutput is one prompt-sized piece of the content. Overlap is the byte
// length of the prefix repeated from the previous chunk.
type ChunkOutput struct {
	Index   int    `json:"index"`
	Tokens  int    `json:"tokens"`
	Overlap int    `json:"overlap"`
	Text    string `json:"text"`
}

// Stats summarizes a batch run.
type Stats struct {
	TotalURLs        int      `json:"total_urls"`
	Successful       int      `json:"successful"`
	Failed           int      `json:"failed"`
	TotalTimeSeconds float64  `json:"total_time_seconds"`
	TopKeywords      []string `json:"top_keywords,omitempty"`
}

// FinalOutput wraps a batch run.
type FinalOutput struct {
	Status  string        `json:"status"`
	Results []interface{} `json:"results"`
	Stats   Stats         `json:"stats"`
}
