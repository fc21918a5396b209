// Package dto holds the request and response shapes of the HTTP API.
package dto

// QueryRequest is the body of POST /v1/query. The flags mirror the execute
// options: one trims the result to its first row, commit commits the
// pending transaction, keep_open leaves the session connected afterwards.
// cache_ttl (seconds) opts the result into the cache for that long.
type QueryRequest struct {
	Connection string `json:"connection" validate:"required"`
	SQL        string `json:"sql" validate:"required"`
	One        bool   `json:"one"`
	Commit     bool   `json:"commit"`
	KeepOpen   bool   `json:"keep_open"`
	CacheTTL   int    `json:"cache_ttl" validate:"min=0"`
}

// QueryResponse is the success body of POST /v1/query. rows_affected is set
// only when the statement produced a tally instead of rows. cached marks
// results served from the cache without touching the database.
type QueryResponse struct {
	Success      bool             `json:"success"`
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	RowsAffected *int64           `json:"rows_affected,omitempty"`
	DurationMS   float64          `json:"duration_ms"`
	Cached       bool             `json:"cached,omitempty"`
}

// ConnectionStatus describes one registry entry and whether it currently
// holds a live session. Credentials never appear here.
type ConnectionStatus struct {
	Name  string `json:"name"`
	RDBMS string `json:"rdbms"`
	Alive bool   `json:"alive"`
}

// ConnectionsResponse is the body of GET /v1/connections.
type ConnectionsResponse struct {
	Success     bool               `json:"success"`
	Connections []ConnectionStatus `json:"connections"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Success bool `json:"success"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
}

// ErrorResponse is the error body for every endpoint. Code carries the
// bridge error code, trace_id the active trace when tracing is on, and
// details per-field findings for validation failures.
type ErrorResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	TraceID string        `json:"trace_id,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}
