// Package health exposes the liveness endpoint.
package health

import "net/http"

// Handler reports process liveness. It deliberately checks nothing else;
// dependency health is the orchestrator's readiness concern.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
