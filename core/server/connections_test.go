package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbbridge/dbbridge/core/cache"
	"github.com/dbbridge/dbbridge/core/server/dto"
)

func TestConnectionsListsActiveEntries(t *testing.T) {
	mgr := newFakeManager(t)
	mgr.statuses = map[string]bool{"dwh": true, "pg-app": false}
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodGet, "/v1/connections", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ConnectionsResponse
	decodeInto(t, rec, &resp)
	assert.True(t, resp.Success)
	require.Len(t, resp.Connections, 2)
	assert.Equal(t, dto.ConnectionStatus{Name: "dwh", RDBMS: "oracle", Alive: true}, resp.Connections[0])
	assert.Equal(t, dto.ConnectionStatus{Name: "pg-app", RDBMS: "postgresql", Alive: false}, resp.Connections[1])
}

func TestConnectionsNeverSerializeCredentials(t *testing.T) {
	mgr := newFakeManager(t)
	mgr.statuses = map[string]bool{"dwh": true}
	router := newTestRouter(t, mgr, cache.NewMemory())

	rec := doJSON(t, router, http.MethodGet, "/v1/connections", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "tiger")
	assert.NotContains(t, body, "scott")
}
