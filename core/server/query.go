package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/bridge"
	"github.com/dbbridge/dbbridge/core/cache"
	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/observability"
	"github.com/dbbridge/dbbridge/core/server/dto"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

var validate = validator.New()

// handleQuery handles POST /v1/query. The request names a connection and a
// statement; flags map onto the execute options. A cache_ttl > 0 consults
// the result cache before touching the database and stores row-producing
// results afterwards. Tally results are never cached.
func handleQuery(mgr ConnectionManager, store cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.New("handler")
		start := time.Now()

		var req dto.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("Failed to parse JSON body: %v", err)
			writeError(w, r.Context(), errors.Wrap(errors.ErrCodeInvalidInput, "invalid JSON body", err))
			return
		}

		if err := validate.Struct(req); err != nil {
			log.Warnf("Request failed validation: %v", err)
			writeValidationError(w, err)
			return
		}

		details, err := mgr.Registry().Lookup(req.Connection)
		if err != nil {
			log.Warnf("Lookup failed for %q: %v", req.Connection, err)
			writeError(w, r.Context(), err)
			return
		}

		key := cache.Key(req.Connection, req.SQL)
		if req.CacheTTL > 0 {
			if cached, ok := store.Get(r.Context(), key); ok {
				log.Debugf("Cache hit for %q", req.Connection)
				writeRowset(w, cached, msSince(start), true)
				return
			}
		}

		ctx, span := observability.StartStatementSpan(r.Context(), req.Connection, details.RDBMS)
		defer span.End()

		result, err := mgr.Execute(ctx, req.Connection, req.SQL, executeOptions(req)...)
		durationMS := msSince(start)
		observability.RecordStatementExecution(ctx, req.Connection, details.RDBMS, err == nil, durationMS)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			log.Errorf("Statement on %q failed: %v", req.Connection, err)
			writeError(w, ctx, err)
			return
		}

		if req.CacheTTL > 0 {
			if _, tally := result.AffectedCount(); !tally {
				store.Set(ctx, key, result, time.Duration(req.CacheTTL)*time.Second)
			}
		}

		log.Debugf("Statement on %q returned %d row(s) in %.1fms", req.Connection, len(result.Rows), durationMS)
		writeRowset(w, result, durationMS, false)
	}
}

func executeOptions(req dto.QueryRequest) []bridge.Option {
	var opts []bridge.Option
	if req.One {
		opts = append(opts, bridge.One())
	}
	if req.Commit {
		opts = append(opts, bridge.Commit())
	}
	if req.KeepOpen {
		opts = append(opts, bridge.KeepOpen())
	}
	return opts
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func writeRowset(w http.ResponseWriter, rs *backend.Rowset, durationMS float64, cached bool) {
	resp := dto.QueryResponse{
		Success:    true,
		Columns:    rs.Columns,
		Rows:       rs.Rows,
		DurationMS: durationMS,
		Cached:     cached,
	}
	// Keep columns and rows present in the JSON even when empty
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	if resp.Rows == nil {
		resp.Rows = []map[string]any{}
	}
	if count, ok := rs.AffectedCount(); ok {
		resp.RowsAffected = &count
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, ctx context.Context, err error) {
	resp := dto.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Code:    string(errors.CodeOf(err)),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		resp.TraceID = sc.TraceID().String()
	}
	writeJSON(w, errors.HTTPStatus(err), resp)
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := dto.ErrorResponse{
		Success: false,
		Error:   "Validation failed",
		Code:    string(errors.ErrCodeInvalidInput),
	}
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, validationErr := range validationErrs {
			resp.Details = append(resp.Details, dto.ErrorDetail{
				Field:   validationErr.Field(),
				Message: validationErr.Error(),
				Tag:     validationErr.Tag(),
			})
		}
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
