package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theoddden/terradev-broker/internal/engine"
)

var (
	errInvalidCount       = errors.New("count must be >= 1")
	errMissingStageFields = errors.New("dataset_ref and at least one region are required")
	errMissingCommand     = errors.New("command must not be empty")
)

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// NewRouter wires the Engine's five public operations, a health check,
// a Prometheus scrape endpoint, and a websocket progress stream onto a
// single mux.Router, mirroring cmd/server/main.go's route-registration
// shape. jwtSecret == "" disables bearer auth on the protected subrouter,
// per config.AuthConfig's documented behavior.
func NewRouter(e *engine.Engine, jwtSecret string) *mux.Router {
	h := NewHandler(e)
	progress := NewProgressHub()

	router := mux.NewRouter()
	router.Use(Recovery)
	router.Use(RequestID)
	router.Use(Logger)
	router.Use(CORS)

	router.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/ws/staging", progress.HandleConnection)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(RequireBearerAuth(jwtSecret))

	api.HandleFunc("/quotes", h.GetQuotes).Methods(http.MethodGet)
	api.HandleFunc("/provision", h.Provision).Methods(http.MethodPost)
	api.HandleFunc("/stage", progress.WrapStage(h.StageDataset)).Methods(http.MethodPost)
	api.HandleFunc("/instances/{instanceId}", h.ManageInstance).Methods(http.MethodPost)
	api.HandleFunc("/instances/{instanceId}/exec", h.ExecuteCommand).Methods(http.MethodPost)

	return router
}
