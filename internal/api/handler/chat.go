package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/neuralizard/internal/api/response"
	"github.com/Rrens/neuralizard/internal/service"
)

// ChatHandler serves the request/reply chat endpoints.
type ChatHandler struct {
	completions *service.CompletionService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(completions *service.CompletionService) *ChatHandler {
	return &ChatHandler{completions: completions}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (service.CompletionRequest, bool) {
	var req service.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Detail(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if err := req.Validate(); err != nil {
		response.Detail(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// Providers lists every registered provider and the default.
func (h *ChatHandler) Providers(w http.ResponseWriter, r *http.Request) {
	router := h.completions.Router()
	response.Raw(w, http.StatusOK, map[string]any{
		"providers":        router.Info(),
		"available":        router.Available(),
		"default_provider": router.DefaultProvider(),
	})
}

// Complete runs a single-shot completion.
func (h *ChatHandler) Complete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	res, err := h.completions.Complete(r.Context(), req)
	if err != nil {
		log.Warn().Err(err).Str("provider", req.Provider).Msg("Completion failed")
		response.Detail(w, http.StatusInternalServerError, "Provider error: "+err.Error())
		return
	}

	response.Raw(w, http.StatusOK, map[string]string{
		"text":     res.Text,
		"provider": res.Provider,
		"model":    res.Model,
	})
}

// Stream relays normalized tokens as a chunked text/plain body. A provider
// failure after the headers are sent is inlined as a diagnostic marker.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	provider, err := h.completions.Resolve(req)
	if err != nil {
		response.Detail(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	res, err := h.completions.Stream(r.Context(), provider, req, w)
	if err != nil {
		log.Debug().Err(err).Str("provider", provider.Name()).Msg("Stream client went away")
		return
	}
	if res.Err != nil {
		log.Warn().Err(res.Err).Str("provider", res.Provider).Msg("Stream failed")
	}
}
