package ingestion

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/common/models"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
)

// HTTPHandler accepts raw row batches posted directly, for replays and
// local runs without a broker.
type HTTPHandler struct {
	service *Service
	raw     *reconcile.RawRepository
	maxBody int64
}

func NewHTTPHandler(service *Service, raw *reconcile.RawRepository, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, raw: raw, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/raw-manifest-rows", h.handleIngest).Methods(http.MethodPost)
	router.HandleFunc("/raw-manifest-rows/{family}/count", h.handleCount).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var batch models.RawRowBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		logger.Log.WithError(err).Warn("invalid raw row payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Ingest(r.Context(), batch)
	if err != nil {
		if genomic.IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		logger.Log.WithError(err).Error("failed to ingest raw rows")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(res)
}

func (h *HTTPHandler) handleCount(w http.ResponseWriter, r *http.Request) {
	family, err := reconcile.ParseFamily(mux.Vars(r)["family"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	filePath := r.URL.Query().Get("file_path")
	if filePath == "" {
		http.Error(w, "file_path required", http.StatusBadRequest)
		return
	}

	count, err := h.raw.CountForFilePath(r.Context(), family, filePath)
	if err != nil {
		logger.Log.WithError(err).Error("failed to count raw rows")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"manifest_type": family,
		"file_path":     filePath,
		"count":         count,
	})
}
