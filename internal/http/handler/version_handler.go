package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/service"
	"go.uber.org/zap"
)

// VersionHandler handles HTTP requests for version snapshots, diffs and
// what-if simulations
type VersionHandler struct {
	versionService    *service.VersionService
	diffService       *service.DiffService
	simulationService *service.SimulationService
	logger            *zap.Logger
}

// NewVersionHandler creates a new VersionHandler instance
func NewVersionHandler(
	versionService *service.VersionService,
	diffService *service.DiffService,
	simulationService *service.SimulationService,
	logger *zap.Logger,
) *VersionHandler {
	return &VersionHandler{
		versionService:    versionService,
		diffService:       diffService,
		simulationService: simulationService,
		logger:            logger,
	}
}

// Create creates an immutable version snapshot
// @Summary Create version snapshot
// @Description Recalculate the document and freeze its current state as the next version
// @Tags versions
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.CreateSnapshotRequest true "Snapshot label and comment"
// @Success 201 {object} domain.SnapshotDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/versions [post]
// @Security BearerAuth
func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.CreateSnapshotRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, err)
			return
		}
	}

	snapshot, err := h.versionService.Create(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create snapshot")
		return
	}
	respondJSON(w, http.StatusCreated, snapshot)
}

// List returns the version history of a document
// @Summary List version snapshots
// @Description Get all snapshots of a document, newest first, without tree payloads
// @Tags versions
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {array} domain.SnapshotDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/versions [get]
// @Security BearerAuth
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	snapshots, err := h.versionService.List(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "list snapshots")
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

// Get returns one snapshot with its frozen tree
// @Summary Get version snapshot
// @Description Get a snapshot with the full frozen section/item tree
// @Tags versions
// @Produce json
// @Param id path string true "Document ID"
// @Param version path int true "Version number"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/versions/{version} [get]
// @Security BearerAuth
func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		respondWithError(w, http.StatusBadRequest, "Invalid version number")
		return
	}

	snapshot, tree, err := h.versionService.Get(r.Context(), id, version)
	if err != nil {
		handleServiceError(w, h.logger, err, "get snapshot")
		return
	}

	response := map[string]interface{}{
		"snapshot": snapshot,
		"tree":     tree,
	}
	respondJSON(w, http.StatusOK, response)
}

// Diff compares two snapshots of a document
// @Summary Diff two versions
// @Description Compare two snapshots and return added, removed and changed items with field-level deltas
// @Tags versions
// @Produce json
// @Param id path string true "Document ID"
// @Param from query int true "Base version number"
// @Param to query int true "Target version number"
// @Success 200 {object} domain.DiffResult
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/diff [get]
// @Security BearerAuth
func (h *VersionHandler) Diff(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	from, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil || from < 1 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'from' version")
		return
	}
	to, err := strconv.Atoi(r.URL.Query().Get("to"))
	if err != nil || to < 1 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'to' version")
		return
	}

	diff, err := h.diffService.Compare(r.Context(), id, from, to)
	if err != nil {
		handleServiceError(w, h.logger, err, "diff versions")
		return
	}
	respondJSON(w, http.StatusOK, diff)
}

// Simulate runs a what-if calculation without persisting anything
// @Summary Simulate rate and index changes
// @Description Recalculate the document in memory with overridden rates and price indexes
// @Tags versions
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.SimulationOverrides true "Overrides; omitted fields keep stored values"
// @Success 200 {object} domain.SimulationResult
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/simulate [post]
// @Security BearerAuth
func (h *VersionHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var overrides domain.SimulationOverrides
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.simulationService.Simulate(r.Context(), id, overrides)
	if err != nil {
		handleServiceError(w, h.logger, err, "simulate document")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
