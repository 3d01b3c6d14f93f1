package log

import "time"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldMonth       = "month"
	FieldReportID    = "report_id"
	FieldTotalSpent  = "total_spent"
	FieldTopCategory = "top_category"
	FieldCreated     = "created"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentReports = "reports"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpGenerate = "generate"
	OpRequest  = "request"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message, skipping nil errors
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithReport adds the identifying fields of a monthly report
func (f LogFields) WithReport(userID, month string, reportID int64) LogFields {
	f[FieldUserID] = userID
	f[FieldMonth] = month
	if reportID != 0 {
		f[FieldReportID] = reportID
	}
	return f
}

// WithTotals adds the aggregated totals of a report
func (f LogFields) WithTotals(totalSpent, topCategory string) LogFields {
	f[FieldTotalSpent] = totalSpent
	f[FieldTopCategory] = topCategory
	return f
}

// WithOutcome adds whether a row was created and how long it took
func (f LogFields) WithOutcome(created bool, elapsed time.Duration) LogFields {
	f[FieldCreated] = created
	f[FieldDuration] = elapsed.Milliseconds()
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
