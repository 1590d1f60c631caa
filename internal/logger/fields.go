package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a call chain.
const (
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldImageID   = "image_id"
	FieldQuery     = "query"
	FieldReference = "reference"
	FieldVideo     = "video"
	FieldFrame     = "frame"
)

// Metric fields, attached per log line through Entry.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldStatus     = "status"
	FieldScore      = "score"
	FieldRisk       = "risk_level"
	FieldSize       = "size"
)
