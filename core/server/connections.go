package server

import (
	"net/http"
	"time"

	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/observability"
	"github.com/dbbridge/dbbridge/core/server/dto"
)

// handleConnections handles GET /v1/connections. It lists every active
// registry entry with its liveness. Probes run in parallel, so the recorded
// duration is the wall time of the whole sweep.
func handleConnections(mgr ConnectionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.New("handler")
		start := time.Now()

		statuses := mgr.StatusAll(r.Context())
		durationMS := msSince(start)

		active := mgr.Registry().Active()
		resp := dto.ConnectionsResponse{
			Success:     true,
			Connections: make([]dto.ConnectionStatus, 0, len(active)),
		}
		for _, details := range active {
			alive := statuses[details.Name]
			resp.Connections = append(resp.Connections, dto.ConnectionStatus{
				Name:  details.Name,
				RDBMS: details.RDBMS,
				Alive: alive,
			})
			observability.RecordConnectionOperation(r.Context(), details.Name, details.RDBMS, "status", alive, durationMS)
		}

		log.Debugf("Reported status for %d connection(s)", len(resp.Connections))
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleHealth reports process liveness.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Success: true})
}
