package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/parallax-fi/fcm/internal/engine"
	"github.com/parallax-fi/fcm/internal/logger"
	"github.com/parallax-fi/fcm/internal/state"
	"github.com/parallax-fi/fcm/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes pool snapshots, fee previews and the event feed over HTTP.
type WebServer struct {
	router  *mux.Router
	port    string
	engine  *engine.Engine
	poker   types.Address
	started time.Time
}

// NewWebServer creates a new web server instance. The poker address is used
// as the caller identity for poke requests submitted through the API.
func NewWebServer(port string, eng *engine.Engine, poker types.Address) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		engine:  eng,
		poker:   poker,
		started: time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{id}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}/poke", ws.handlePoke).Methods("POST")
	api.HandleFunc("/pools/{id}/preview-fee", ws.handlePreviewFee).Methods("GET")
	api.HandleFunc("/pools/{id}/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/pools/{id}/snapshots", ws.handleGetSnapshots).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	if !dbHealthy {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "fcm-fee-capital-manager",
			"version": "1.0.0",
		},
		"fcm_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"active_pools":     len(ws.engine.Pools()),
		},
	}

	statusCode := http.StatusOK
	if !dbHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns the IDs of all active pools
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools := ws.engine.Pools()

	response := map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns a full snapshot of one pool
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}

	snap, err := ws.engine.Snapshot(id)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snap)
}

// handlePoke submits a signal reading to a pool's fee controller
func (ws *WebServer) handlePoke(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}

	ratio, ok := ws.ratioParam(w, r)
	if !ok {
		return
	}

	update, err := ws.engine.Poke(ws.poker, id, ratio)
	if err != nil {
		webLogger.Error().Err(err).Uint64("poolId", uint64(id)).Msg("Poke failed")
		ws.writeErrorResponse(w, http.StatusConflict, err.Error())
		return
	}

	// Persist the post-poke control state for the snapshot history. A
	// storage failure must not fail the poke itself.
	if snap, serr := ws.engine.Snapshot(id); serr == nil {
		if _, serr := state.SaveControlSnapshot(snap); serr != nil {
			webLogger.Error().Err(serr).Uint64("poolId", uint64(id)).Msg("Failed to persist control snapshot")
		}
	}

	ws.writeJSONResponse(w, http.StatusOK, update)
}

// handlePreviewFee computes a fee update without committing it
func (ws *WebServer) handlePreviewFee(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}

	ratio, ok := ws.ratioParam(w, r)
	if !ok {
		return
	}

	update, err := ws.engine.PreviewFee(id, ratio)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, update)
}

// handleGetEvents returns recent persisted events for a pool
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}

	limit := ws.limitParam(r)
	events, err := state.RecentEvents(id, limit)
	if err != nil {
		webLogger.Error().Err(err).Uint64("poolId", uint64(id)).Msg("Failed to get recent events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	response := map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSnapshots returns recent persisted control snapshots for a pool
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}

	limit := ws.limitParam(r)
	snaps, err := state.RecentControlSnapshots(id, limit)
	if err != nil {
		webLogger.Error().Err(err).Uint64("poolId", uint64(id)).Msg("Failed to get snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	response := map[string]interface{}{
		"snapshots": snaps,
		"count":     len(snaps),
		"limit":     limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// poolID parses the {id} path variable
func (ws *WebServer) poolID(w http.ResponseWriter, r *http.Request) (types.PoolID, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool ID")
		return 0, false
	}
	return types.PoolID(id), true
}

// ratioParam parses the ratio query parameter (decimal string, e.g. "1.25"),
// falling back to the JSON body field of the same name.
func (ws *WebServer) ratioParam(w http.ResponseWriter, r *http.Request) (sdkmath.LegacyDec, bool) {
	raw := r.URL.Query().Get("ratio")
	if raw == "" && r.Body != nil {
		var body struct {
			Ratio string `json:"ratio"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			raw = body.Ratio
		}
	}
	if raw == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Missing ratio parameter")
		return sdkmath.LegacyDec{}, false
	}

	ratio, err := sdkmath.LegacyNewDecFromStr(raw)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid ratio parameter")
		return sdkmath.LegacyDec{}, false
	}
	return ratio, true
}

// limitParam parses the limit query parameter, bounded to [1, 100]
func (ws *WebServer) limitParam(r *http.Request) int {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
