package pipeline

import "github.com/dtnitsch/llm-page-context/models"

// Progress forwards stage events to a caller callback and remembers the last
// one so a failure can be reported at the stage it happened.
type Progress struct {
	fn   models.ProgressFunc
	last models.ExtractionProgress
}

func newProgress(fn models.ProgressFunc) *Progress {
	return &Progress{fn: fn}
}

func (p *Progress) emit(status models.ProgressStatus, percent int, step string) {
	p.last = models.ExtractionProgress{Status: status, Progress: percent, CurrentStep: step}
	if p.fn != nil {
		p.fn(p.last)
	}
}

func (p *Progress) fail(err error) {
	ev := models.ExtractionProgress{
		Status:      models.StatusError,
		Progress:    p.last.Progress,
		CurrentStep: p.last.CurrentStep,
		Error:       err.Error(),
	}
	p.last = ev
	if p.fn != nil {
		p.fn(ev)
	}
}

// Last is the most recent event.
func (p *Progress) Last() models.ExtractionProgress { return p.last }

// Step names reported with each stage.
const (
	StepDetecting  = "Detecting page type"
	StepLoading    = "Loading readability"
	StepProcessing = "Processing content"
	StepReadingPDF = "Reading PDF"
)
