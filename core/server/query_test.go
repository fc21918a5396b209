package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/cache"
	"github.com/dbbridge/dbbridge/core/server/dto"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

func TestQueryReturnsRows(t *testing.T) {
	mgr := newFakeManager(t)
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodPost, "/v1/query", dto.QueryRequest{
		Connection: "dwh",
		SQL:        "SELECT id, name FROM employees",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.QueryResponse
	decodeInto(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"ID", "NAME"}, resp.Columns)
	assert.Len(t, resp.Rows, 2)
	assert.Nil(t, resp.RowsAffected)
	assert.False(t, resp.Cached)

	assert.Equal(t, 1, mgr.executed)
	assert.Equal(t, "dwh", mgr.lastName)
	assert.Equal(t, "SELECT id, name FROM employees", mgr.lastSQL)
	assert.Equal(t, 0, mgr.lastOpts)
}

func TestQueryReportsAffected(t *testing.T) {
	mgr := newFakeManager(t)
	mgr.result = backend.Affected(3)
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodPost, "/v1/query", dto.QueryRequest{
		Connection: "dwh",
		SQL:        "DELETE FROM employees WHERE id > 100",
		Commit:     true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.QueryResponse
	decodeInto(t, rec, &resp)
	require.NotNil(t, resp.RowsAffected)
	assert.Equal(t, int64(3), *resp.RowsAffected)
	assert.Equal(t, []string{backend.AffectedColumn}, resp.Columns)
	assert.Equal(t, 1, mgr.lastOpts)
}

func TestQueryPassesOptions(t *testing.T) {
	mgr := newFakeManager(t)
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodPost, "/v1/query", dto.QueryRequest{
		Connection: "dwh",
		SQL:        "SELECT 1 FROM dual",
		One:        true,
		Commit:     true,
		KeepOpen:   true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, mgr.lastOpts)
}

func TestQueryValidationFailure(t *testing.T) {
	mgr := newFakeManager(t)
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodPost, "/v1/query", dto.QueryRequest{
		Connection: "dwh",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp dto.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, string(errors.ErrCodeInvalidInput), resp.Code)
	require.NotEmpty(t, resp.Details)
	assert.Equal(t, "SQL", resp.Details[0].Field)
	assert.Equal(t, "required", resp.Details[0].Tag)
	assert.Zero(t, mgr.executed)
}

func TestQueryBadJSON(t *testing.T) {
	mgr := newFakeManager(t)
	router := newTestRouter(t, mgr, cache.NewMemory())

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp dto.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, string(errors.ErrCodeInvalidInput), resp.Code)
	assert.Zero(t, mgr.executed)
}

func TestQueryUnknownConnection(t *testing.T) {
	mgr := newFakeManager(t)
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodPost, "/v1/query", dto.QueryRequest{
		Connection: "nope",
		SQL:        "SELECT 1",
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp dto.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, string(errors.ErrCodeConnectionNotFound), resp.Code)
	assert.Contains(t, resp.Error, "nope")
	assert.Zero(t, mgr.executed)
}

func TestQueryStatementError(t *testing.T) {
	mgr := newFakeManager(t)
	mgr.err = errors.New(errors.ErrCodeStatementFailed, "failed to execute statement")
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodPost, "/v1/query", dto.QueryRequest{
		Connection: "dwh",
		SQL:        "SELECT broken FROM nowhere",
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp dto.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, string(errors.ErrCodeStatementFailed), resp.Code)
}

func TestQueryEmptyResultMapsToNotFound(t *testing.T) {
	mgr := newFakeManager(t)
	mgr.err = errors.Newf(errors.ErrCodeEmptyResult, "result set was empty, nothing to return for connection %q", "dwh")
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodPost, "/v1/query", dto.QueryRequest{
		Connection: "dwh",
		SQL:        "SELECT id FROM employees WHERE 1 = 0",
		One:        true,
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp dto.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, string(errors.ErrCodeEmptyResult), resp.Code)
}

func TestQueryCacheRoundTrip(t *testing.T) {
	mgr := newFakeManager(t)
	router := newTestRouter(t, mgr, cache.NewMemory())

	body := dto.QueryRequest{
		Connection: "dwh",
		SQL:        "SELECT id, name FROM employees",
		CacheTTL:   60,
	}

	first := doJSON(t, router, http.MethodPost, "/v1/query", body)
	require.Equal(t, http.StatusOK, first.Code)
	var firstResp dto.QueryResponse
	decodeInto(t, first, &firstResp)
	assert.False(t, firstResp.Cached)
	assert.Equal(t, 1, mgr.executed)

	second := doJSON(t, router, http.MethodPost, "/v1/query", body)
	require.Equal(t, http.StatusOK, second.Code)
	var secondResp dto.QueryResponse
	decodeInto(t, second, &secondResp)
	assert.True(t, secondResp.Cached)
	assert.Equal(t, firstResp.Columns, secondResp.Columns)
	assert.Len(t, secondResp.Rows, 2)
	assert.Equal(t, 1, mgr.executed, "cached result must not reach the database")
}

func TestQueryCacheSkipsTallies(t *testing.T) {
	mgr := newFakeManager(t)
	mgr.result = backend.Affected(2)
	router := newTestRouter(t, mgr, cache.NewMemory())

	body := dto.QueryRequest{
		Connection: "dwh",
		SQL:        "UPDATE employees SET active = 1",
		CacheTTL:   60,
	}

	doJSON(t, router, http.MethodPost, "/v1/query", body)
	doJSON(t, router, http.MethodPost, "/v1/query", body)

	assert.Equal(t, 2, mgr.executed, "tally results are never served from cache")
}
