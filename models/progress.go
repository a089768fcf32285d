package models

// ProgressStatus is the stage reported by an ExtractionProgress event.
type ProgressStatus string

const (
	StatusDetecting  ProgressStatus = "detecting"
	StatusLoading    ProgressStatus = "loading"
	StatusProcessing ProgressStatus = "processing"
	StatusCompleted  ProgressStatus = "completed"
	StatusError      ProgressStatus = "error"
)

// ExtractionProgress is a side-channel event for UI progress reporting.
type ExtractionProgress struct {
	Status      ProgressStatus `json:"status"`
	Progress    int            `json:"progress"` // 0-100
	CurrentStep string         `json:"currentStep,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ProgressFunc receives progress events. It must not block.
type ProgressFunc func(ExtractionProgress)
