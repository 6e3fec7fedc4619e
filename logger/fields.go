package logger

import "time"

// Field names shared by every log entry of the bot.
const (
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldRequestID = "request_id"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"

	FieldMessageID = "message_id"
	FieldMediaKind = "media_kind"
	FieldState     = "state"
	FieldSegments  = "segments"
	FieldBytes     = "bytes"
	FieldProvider  = "provider"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing odd value are dropped.
//
//	log.Info("content fetched", logger.Fields(logger.FieldBytes, n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if k, ok := kvs[i].(string); ok {
			m[k] = kvs[i+1]
		}
	}
	return m
}

func ErrorFields(op string, err error) map[string]interface{} {
	return MergeWithError(map[string]interface{}{FieldOperation: op}, err)
}

func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{FieldOperation: op, FieldDuration: d.Milliseconds()}
}

// MergeWithError sets the error field on fields, allocating if nil.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if err != nil {
		fields[FieldError] = err.Error()
	}
	return fields
}
