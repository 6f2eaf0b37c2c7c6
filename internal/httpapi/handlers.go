package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/theoddden/terradev-broker/internal/engine"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// Handler adapts an *engine.Engine to HTTP, one method per public
// operation.
type Handler struct {
	engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func providerIDs(s string) []model.ProviderID {
	parts := splitCSV(s)
	if parts == nil {
		return nil
	}
	ids := make([]model.ProviderID, len(parts))
	for i, p := range parts {
		ids[i] = model.ProviderID(p)
	}
	return ids
}

// GetQuotes handles GET /api/v1/quotes.
func (h *Handler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxPrice, _ := strconv.ParseFloat(q.Get("max_price_per_hour"), 64)

	quotes, err := h.engine.GetQuotes(r.Context(), engine.GetQuotesRequest{
		GPUFamily:     model.GPUFamily(q.Get("gpu_family")),
		Region:        q.Get("region"),
		Providers:     providerIDs(q.Get("providers")),
		Availability:  model.AvailabilityKind(q.Get("availability")),
		MaxPricePerHr: maxPrice,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": quotes,
		"count":  len(quotes),
	})
}

type provisionBody struct {
	GPUFamily       model.GPUFamily    `json:"gpu_family"`
	Count           int                `json:"count"`
	MaxPricePerHour float64            `json:"max_price_per_hour"`
	Region          string             `json:"region"`
	Providers       []model.ProviderID `json:"providers"`
	Concurrency     int                `json:"concurrency"`
	DryRun          bool               `json:"dry_run"`
}

// Provision handles POST /api/v1/provision.
func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	var body provisionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.Count <= 0 {
		respondError(w, http.StatusBadRequest, errInvalidCount)
		return
	}

	result, err := h.engine.Provision(r.Context(), engine.ProvisionRequest{
		GPUFamily:       body.GPUFamily,
		Count:           body.Count,
		MaxPricePerHour: body.MaxPricePerHour,
		Region:          body.Region,
		Providers:       body.Providers,
		Concurrency:     body.Concurrency,
		DryRun:          body.DryRun,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, result)
}

type stageBody struct {
	DatasetRef string                 `json:"dataset_ref"`
	Regions    []string               `json:"regions"`
	Codec      model.CompressionCodec `json:"codec"`
}

// StageDataset handles POST /api/v1/stage.
func (h *Handler) StageDataset(w http.ResponseWriter, r *http.Request) {
	var body stageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.DatasetRef == "" || len(body.Regions) == 0 {
		respondError(w, http.StatusBadRequest, errMissingStageFields)
		return
	}

	result, err := h.engine.StageDataset(r.Context(), body.DatasetRef, body.Regions, body.Codec)
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type manageBody struct {
	Action string `json:"action"`
}

// ManageInstance handles POST /api/v1/instances/{instanceId}.
func (h *Handler) ManageInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := pathVar(r, "instanceId")
	var body manageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	info, err := h.engine.ManageInstance(r.Context(), instanceID, engine.Action(body.Action))
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

type executeBody struct {
	Command string `json:"command"`
}

// ExecuteCommand handles POST /api/v1/instances/{instanceId}/exec.
func (h *Handler) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	instanceID := pathVar(r, "instanceId")
	var body executeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.Command == "" {
		respondError(w, http.StatusBadRequest, errMissingCommand)
		return
	}

	result, err := h.engine.ExecuteCommand(r.Context(), instanceID, body.Command)
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
