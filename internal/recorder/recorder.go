package recorder

import "snowball/internal/model"

// Recorder persists run history for analysis.
type Recorder interface {
	RecordRun(summary *model.RunSummary) error
	Close() error
}
