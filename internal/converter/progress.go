package converter

import "vocusconv/internal/logger"

// Severity levels for status events.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event types.
const (
	EventOverall  = "overall"
	EventAsset    = "asset"
	EventStatus   = "status"
	EventComplete = "complete"
)

// Event is one progress notification. Delivery is best-effort and
// fire-and-forget: the pipeline never blocks on a sink.
type Event struct {
	Type string

	// Current/Total for overall and asset events.
	Current int
	Total   int
	// Context identifies the document an asset event belongs to.
	Context string

	// Message/Severity for status events.
	Message  string
	Severity Severity

	// ReportPath for the complete event.
	ReportPath string
}

// ProgressSink receives the ordered event stream. Implementations must not
// block; a slow consumer should drop or buffer on its own side.
type ProgressSink interface {
	Publish(Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// LogSink forwards events to the structured logger, mapping status severity
// onto log levels.
type LogSink struct {
	Log *logger.Logger
}

func (s *LogSink) Publish(e Event) {
	switch e.Type {
	case EventOverall:
		s.Log.Info("progress", "current", e.Current, "total", e.Total)
	case EventAsset:
		s.Log.Info("image progress", "document", e.Context, "downloaded", e.Current, "total", e.Total)
	case EventStatus:
		switch e.Severity {
		case SeverityError:
			s.Log.Error(e.Message)
		case SeverityWarning:
			s.Log.Warn(e.Message)
		default:
			s.Log.Info(e.Message)
		}
	case EventComplete:
		s.Log.Info("batch complete", "report", e.ReportPath)
	}
}
