package observability

import (
	"strconv"
	"strings"
)

const (
	AttrServiceName    = "service.name"
	AttrServiceVersion = "service.version"
	AttrDeploymentEnv  = "deployment.environment"
	AttrTraceID        = "trace_id"
	AttrSpanID         = "span_id"
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrConnectionName = "db.connection.name"
	AttrBackendKind    = "db.system"
	AttrErrorType      = "error.type"
	AttrErrorMessage   = "error.message"
)

var secretKeySubstrings = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"connection_string",
	"dsn",
}

// RedactAttributeValue masks values for known-sensitive attribute keys.
func RedactAttributeValue(key string, value string) string {
	lower := strings.ToLower(key)
	for _, needle := range secretKeySubstrings {
		if strings.Contains(lower, needle) {
			return "[REDACTED]"
		}
	}
	return value
}

// StringifyAttrs flattens a detail map into string attributes, masking
// values under secret-bearing keys on the way through.
func StringifyAttrs(attrs map[string]any) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		switch typed := v.(type) {
		case string:
			out[k] = RedactAttributeValue(k, typed)
		case bool:
			out[k] = strconv.FormatBool(typed)
		case int:
			out[k] = strconv.Itoa(typed)
		case int32:
			out[k] = strconv.FormatInt(int64(typed), 10)
		case int64:
			out[k] = strconv.FormatInt(typed, 10)
		case float64:
			out[k] = strconv.FormatFloat(typed, 'f', -1, 64)
		default:
			out[k] = RedactAttributeValue(k, "")
		}
	}
	return out
}
