package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/service"
	"go.uber.org/zap"
)

// DocumentHandler handles HTTP requests for estimate documents
type DocumentHandler struct {
	documentService *service.DocumentService
	logger          *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler instance
func NewDocumentHandler(documentService *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// Create creates a new estimate document
// @Summary Create estimate document
// @Description Create a new empty estimate document in draft status
// @Tags documents
// @Accept json
// @Produce json
// @Param request body domain.CreateDocumentRequest true "Document details"
// @Success 201 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /documents [post]
// @Security BearerAuth
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	doc, err := h.documentService.Create(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create document")
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

// List returns estimate documents with pagination
// @Summary List estimate documents
// @Description Get estimate documents with optional status filter and name search
// @Tags documents
// @Produce json
// @Param status query string false "Filter by status (draft, approved)"
// @Param search query string false "Search in name and number"
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Page size (default 20, max 100)"
// @Success 200 {object} domain.PaginatedResponse
// @Failure 500 {object} domain.APIError
// @Router /documents [get]
// @Security BearerAuth
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := domain.DocumentStatus(q.Get("status"))
	if status != "" && !status.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	resp, err := h.documentService.List(r.Context(), status, q.Get("search"), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list documents")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get returns a single estimate document
// @Summary Get estimate document
// @Description Get an estimate document with its totals
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id} [get]
// @Security BearerAuth
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.documentService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get document")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// GetTree returns the full section/item tree of a document
// @Summary Get document tree
// @Description Get the document with its nested section tree, items and unassigned items
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentTreeDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/tree [get]
// @Security BearerAuth
func (h *DocumentHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	tree, err := h.documentService.GetTree(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get document tree")
		return
	}
	respondJSON(w, http.StatusOK, tree)
}

// Update updates document name and number
// @Summary Update estimate document
// @Description Update name and number of a draft document
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.UpdateDocumentRequest true "Updated details"
// @Success 200 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id} [put]
// @Security BearerAuth
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	doc, err := h.documentService.Update(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update document")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// UpdateRates changes overhead, profit and VAT rates
// @Summary Update document rates
// @Description Change the overhead, profit and VAT percentage rates; totals are recalculated
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.UpdateRatesRequest true "New rates"
// @Success 200 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/rates [put]
// @Security BearerAuth
func (h *DocumentHandler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.UpdateRatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	doc, err := h.documentService.UpdateRates(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update rates")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// UpdateNumberingPolicy switches the numbering policy
// @Summary Change numbering policy
// @Description Switch the numbering policy; all position numbers are reassigned
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.UpdateNumberingPolicyRequest true "New policy"
// @Success 200 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/numbering-policy [put]
// @Security BearerAuth
func (h *DocumentHandler) UpdateNumberingPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.UpdateNumberingPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	doc, err := h.documentService.ChangeNumberingPolicy(r.Context(), id, req.Policy)
	if err != nil {
		handleServiceError(w, h.logger, err, "change numbering policy")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// Approve marks a document as approved and read-only
// @Summary Approve estimate document
// @Description Recalculate and freeze the document; approved documents reject mutations
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/approve [post]
// @Security BearerAuth
func (h *DocumentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.documentService.Approve(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "approve document")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// Recalculate recomputes all derived amounts of a document
// @Summary Recalculate document totals
// @Description Recompute item amounts, section rollups and document totals
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id}/recalculate [post]
// @Security BearerAuth
func (h *DocumentHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.documentService.Recalculate(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "recalculate document")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// Delete removes a document with all its content
// @Summary Delete estimate document
// @Description Delete a document with its sections, items, snapshots and import audits
// @Tags documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /documents/{id} [delete]
// @Security BearerAuth
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	if err := h.documentService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete document")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// CreateSection adds a section to a document
// @Summary Create section
// @Description Add a section under an optional parent section
// @Tags sections
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.CreateSectionRequest true "Section details"
// @Success 201 {object} domain.SectionDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/sections [post]
// @Security BearerAuth
func (h *DocumentHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.CreateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	section, err := h.documentService.CreateSection(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create section")
		return
	}
	respondJSON(w, http.StatusCreated, section)
}

// DeleteSection removes a section subtree; its items become unassigned
// @Summary Delete section
// @Description Delete a section and its subsections; their items move to unassigned
// @Tags sections
// @Param id path string true "Document ID"
// @Param sectionId path string true "Section ID"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/sections/{sectionId} [delete]
// @Security BearerAuth
func (h *DocumentHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	sectionID, err := parseUUIDParam(r, "sectionId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid section ID")
		return
	}

	if err := h.documentService.DeleteSection(r.Context(), id, sectionID); err != nil {
		handleServiceError(w, h.logger, err, "delete section")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// CreateItem adds a line item to a document
// @Summary Create line item
// @Description Add a line item to a section or to the unassigned pool
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.CreateItemRequest true "Item details"
// @Success 201 {object} domain.ItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/items [post]
// @Security BearerAuth
func (h *DocumentHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	item, err := h.documentService.CreateItem(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create item")
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// UpdateItem edits a line item
// @Summary Update line item
// @Description Edit a line item; editing quantity or unit price of a manual item clears its manual flag
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param itemId path string true "Item ID"
// @Param request body domain.UpdateItemRequest true "Updated item details"
// @Success 200 {object} domain.ItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/items/{itemId} [put]
// @Security BearerAuth
func (h *DocumentHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	itemID, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req domain.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	item, err := h.documentService.UpdateItem(r.Context(), id, itemID, req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update item")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DeleteItem removes a line item
// @Summary Delete line item
// @Tags items
// @Param id path string true "Document ID"
// @Param itemId path string true "Item ID"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/items/{itemId} [delete]
// @Security BearerAuth
func (h *DocumentHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	itemID, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if err := h.documentService.DeleteItem(r.Context(), id, itemID); err != nil {
		handleServiceError(w, h.logger, err, "delete item")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// MoveItem moves an item to another section
// @Summary Move line item
// @Description Move an item to another section or to the unassigned pool
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param itemId path string true "Item ID"
// @Param request body domain.MoveItemRequest true "Target section"
// @Success 200 {object} domain.ItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/items/{itemId}/move [post]
// @Security BearerAuth
func (h *DocumentHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	itemID, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req domain.MoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.documentService.MoveItem(r.Context(), id, itemID, req)
	if err != nil {
		handleServiceError(w, h.logger, err, "move item")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// ReorderItems applies a new sibling order within one section
// @Summary Reorder items
// @Description Apply a new order to the items of one section; every item must appear exactly once
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.ReorderItemsRequest true "New order"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /documents/{id}/items/reorder [post]
// @Security BearerAuth
func (h *DocumentHandler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.ReorderItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.documentService.ReorderItems(r.Context(), id, req); err != nil {
		handleServiceError(w, h.logger, err, "reorder items")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
