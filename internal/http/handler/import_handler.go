package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/smetaworks/estimate-api/internal/config"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/smetaworks/estimate-api/internal/service"
	"go.uber.org/zap"
)

// ImportHandler handles HTTP requests for estimate ingestion and export
type ImportHandler struct {
	importService *service.ImportService
	maxUploadSize int64
	logger        *zap.Logger
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(importService *service.ImportService, cfg *config.ImportConfig, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		maxUploadSize: cfg.MaxUploadBytes(),
		logger:        logger,
	}
}

// Preview parses an uploaded estimate file without persisting anything
// @Summary Preview estimate import
// @Description Parse an uploaded file and return the detected structure, columns and warnings
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Estimate source file"
// @Success 200 {object} domain.ImportDocument
// @Failure 400 {object} domain.APIError
// @Failure 422 {object} domain.APIError
// @Router /import/preview [post]
// @Security BearerAuth
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	imported, err := h.importService.Preview(r.Context(), fileName, data)
	if err != nil {
		h.handleIngestError(w, err, "preview import")
		return
	}
	respondJSON(w, http.StatusOK, imported)
}

// Import parses an uploaded estimate file into a new draft document
// @Summary Import estimate file
// @Description Parse an uploaded file and create a draft document with its sections and items
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Estimate source file"
// @Success 201 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 422 {object} domain.APIError
// @Router /import [post]
// @Security BearerAuth
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	doc, err := h.importService.Import(r.Context(), fileName, data)
	if err != nil {
		h.handleIngestError(w, err, "import file")
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

// Export serializes a document into the native interchange format
// @Summary Export document
// @Description Download the document in the native JSON interchange format
// @Tags import
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.ImportDocument
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/export [get]
// @Security BearerAuth
func (h *ImportHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	data, err := h.importService.Export(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "export document")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="estimate-%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListAudits returns the import audit trail of a document
// @Summary List import audits
// @Description Get the audit records of every import that produced this document
// @Tags import
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {array} domain.ImportAudit
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/imports [get]
// @Security BearerAuth
func (h *ImportHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	audits, err := h.importService.ListAudits(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "list import audits")
		return
	}
	respondJSON(w, http.StatusOK, audits)
}

// readUpload extracts the "file" part of a multipart upload, enforcing the
// configured size limit. On failure the response has already been written.
func (h *ImportHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or too large multipart upload")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file in upload")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return "", nil, false
	}
	return header.Filename, data, true
}

// handleIngestError maps ingestion failures to 422 so callers can tell a bad
// source file apart from a bad request.
func (h *ImportHandler) handleIngestError(w http.ResponseWriter, err error, action string) {
	var ingErr *ingest.Error
	switch {
	case errors.As(err, &ingErr):
		respondWithError(w, http.StatusUnprocessableEntity, ingErr.Error())
	case errors.Is(err, ingest.ErrNoAdapter),
		errors.Is(err, ingest.ErrUnreadable),
		errors.Is(err, ingest.ErrNoHeader),
		errors.Is(err, ingest.ErrUnparseable):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		handleServiceError(w, h.logger, err, action)
	}
}
