package http

import (
	"context"
	"net/http"
	"time"

	"github.com/brightpay/console/internal/console/store"
	"github.com/brightpay/console/pkg/httpx"
	"github.com/brightpay/console/pkg/slogx"
)

// HealthResponse reports service health for probes.
type HealthResponse struct {
	Status  string          `json:"status"`
	Uptime  string          `json:"uptime"`
	Version string          `json:"version"`
	Checks  map[string]bool `json:"checks,omitempty"`
}

// LivezHandler always answers 200 while the process is up.
//
//	@Summary	Liveness probe
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler answers 200 only when the store is reachable, i.e. the
// service can actually resolve identities for protected routes. A missing
// token secret is fatal at boot, so it never shows up here.
//
//	@Summary	Readiness probe
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/readyz [get].
func ReadyzHandler(st store.Store, startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		storeOK := st.Ping(ctx) == nil
		if !storeOK {
			slogx.FromContext(r.Context()).Warn("readiness check failed", "check", "store")
		}

		resp := HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  map[string]bool{"store": storeOK},
		}

		code := http.StatusOK
		if !storeOK {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, resp)
	}
}
