package domain

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================
// Import pipeline DTOs
// ============================================================

// CanonicalField identifies one of the semantic fields every extraction
// adapter produces, regardless of source format.
type CanonicalField string

const (
	FieldNumber    CanonicalField = "number"
	FieldName      CanonicalField = "name"
	FieldUnit      CanonicalField = "unit"
	FieldQuantity  CanonicalField = "quantity"
	FieldUnitPrice CanonicalField = "unit_price"
	FieldCode      CanonicalField = "code"
	FieldTotal     CanonicalField = "total"
)

// ColumnDetection records how a single source column was mapped to a
// canonical field, keeping the original header for auditability.
type ColumnDetection struct {
	Column     int            `json:"column"`
	Field      CanonicalField `json:"field"`
	Header     string         `json:"header"`
	Confidence float64        `json:"confidence"`
}

// ImportRowKind classifies a parsed source row
type ImportRowKind string

const (
	RowKindSection ImportRowKind = "section"
	RowKindItem    ImportRowKind = "item"
)

// ImportRow is one classified row of an ImportDocument. Items carry the
// section path they belong to; section markers carry their own number/name.
type ImportRow struct {
	Kind        ImportRowKind `json:"kind"`
	SourceLine  int           `json:"sourceLine"`
	Number      string        `json:"number,omitempty"`
	Name        string        `json:"name"`
	Unit        string        `json:"unit,omitempty"`
	Code        string        `json:"code,omitempty"`
	Quantity    *float64      `json:"quantity,omitempty"`
	UnitPrice   *float64      `json:"unitPrice,omitempty"`
	Total       *float64      `json:"total,omitempty"`
	ItemType    ItemType      `json:"itemType,omitempty"`
	SectionPath []string      `json:"sectionPath,omitempty"`
}

// ImportMeta is document-level metadata collected during detection
type ImportMeta struct {
	Adapter        string `json:"adapter"`
	EstimateType   string `json:"estimateType,omitempty"`
	ProgramVersion string `json:"programVersion,omitempty"`
	Encoding       string `json:"encoding,omitempty"`
	Delimiter      string `json:"delimiter,omitempty"`
	HeaderRow      int    `json:"headerRow,omitempty"`
	SkippedRows    int    `json:"skippedRows,omitempty"`
}

// ImportDocument is the transient, format-agnostic output of ingestion.
// It is consumed once to materialize sections and items and then discarded;
// it is never the document of record.
type ImportDocument struct {
	Name     string            `json:"name,omitempty"`
	Meta     ImportMeta        `json:"meta"`
	Columns  []ColumnDetection `json:"columns,omitempty"`
	Rows     []ImportRow       `json:"rows"`
	Warnings []string          `json:"warnings,omitempty"`
}

// SectionRows returns only the section-marker rows
func (d *ImportDocument) SectionRows() []ImportRow {
	return d.rowsOfKind(RowKindSection)
}

// ItemRows returns only the line-item rows
func (d *ImportDocument) ItemRows() []ImportRow {
	return d.rowsOfKind(RowKindItem)
}

func (d *ImportDocument) rowsOfKind(kind ImportRowKind) []ImportRow {
	var out []ImportRow
	for _, r := range d.Rows {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// ============================================================
// Document tree DTOs
// ============================================================

// ItemDTO is the API representation of a line item
type ItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	SectionID      *uuid.UUID `json:"sectionId,omitempty"`
	PositionNumber string     `json:"positionNumber"`
	Name           string     `json:"name"`
	Unit           string     `json:"unit,omitempty"`
	Code           string     `json:"code,omitempty"`
	ItemType       ItemType   `json:"itemType"`
	Quantity       float64    `json:"quantity"`
	UnitPrice      float64    `json:"unitPrice"`
	BaseUnitPrice  *float64   `json:"baseUnitPrice,omitempty"`
	PriceIndex     *float64   `json:"priceIndex,omitempty"`
	Manual         bool       `json:"manual"`
	NotAccounted   bool       `json:"notAccounted"`
	DirectCost     float64    `json:"directCost"`
	OverheadAmount float64    `json:"overheadAmount"`
	ProfitAmount   float64    `json:"profitAmount"`
	TotalAmount    float64    `json:"totalAmount"`
	SortOrder      int        `json:"sortOrder"`
}

// SectionDTO is the API representation of a section subtree
type SectionDTO struct {
	ID          uuid.UUID    `json:"id"`
	Number      string       `json:"number"`
	Name        string       `json:"name"`
	SortOrder   int          `json:"sortOrder"`
	TotalAmount float64      `json:"totalAmount"`
	Items       []ItemDTO    `json:"items"`
	Children    []SectionDTO `json:"children"`
}

// DocumentTotalsDTO carries the five cached totals of a document
type DocumentTotalsDTO struct {
	Direct        float64 `json:"direct"`
	Overhead      float64 `json:"overhead"`
	Profit        float64 `json:"profit"`
	Amount        float64 `json:"amount"`
	AmountWithVAT float64 `json:"amountWithVat"`
}

// DocumentDTO is the API representation of an estimate document
type DocumentDTO struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Number          string            `json:"number,omitempty"`
	Status          DocumentStatus    `json:"status"`
	NumberingPolicy NumberingPolicy   `json:"numberingPolicy"`
	OverheadRate    float64           `json:"overheadRate"`
	ProfitRate      float64           `json:"profitRate"`
	VATRate         float64           `json:"vatRate"`
	Totals          DocumentTotalsDTO `json:"totals"`
	TotalsDirty     bool              `json:"totalsDirty"`
	VersionCount    int               `json:"versionCount"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// DocumentTreeDTO is a document with its full section/item tree plus
// unassigned items attached to no section.
type DocumentTreeDTO struct {
	Document   DocumentDTO  `json:"document"`
	Sections   []SectionDTO `json:"sections"`
	Unassigned []ItemDTO    `json:"unassignedItems"`
}

// SnapshotDTO is the API representation of a version snapshot
type SnapshotDTO struct {
	ID            uuid.UUID         `json:"id"`
	DocumentID    uuid.UUID         `json:"documentId"`
	VersionNumber int               `json:"versionNumber"`
	Label         string            `json:"label,omitempty"`
	Comment       string            `json:"comment,omitempty"`
	CreatedByID   string            `json:"createdById,omitempty"`
	CreatedByName string            `json:"createdByName,omitempty"`
	Totals        DocumentTotalsDTO `json:"totals"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// SnapshotItem is the serialized form of an item inside a snapshot tree.
// Item identity (ItemID) is preserved so two snapshots of the same document
// can be matched item-by-item.
type SnapshotItem struct {
	ItemID         uuid.UUID `json:"itemId"`
	PositionNumber string    `json:"positionNumber"`
	Name           string    `json:"name"`
	Unit           string    `json:"unit,omitempty"`
	ItemType       ItemType  `json:"itemType"`
	Quantity       float64   `json:"quantity"`
	UnitPrice      float64   `json:"unitPrice"`
	BaseUnitPrice  *float64  `json:"baseUnitPrice,omitempty"`
	PriceIndex     *float64  `json:"priceIndex,omitempty"`
	NotAccounted   bool      `json:"notAccounted"`
	TotalAmount    float64   `json:"totalAmount"`
}

// SnapshotSection is the serialized form of a section subtree inside a snapshot
type SnapshotSection struct {
	SectionID   uuid.UUID         `json:"sectionId"`
	Number      string            `json:"number"`
	Name        string            `json:"name"`
	TotalAmount float64           `json:"totalAmount"`
	Items       []SnapshotItem    `json:"items"`
	Children    []SnapshotSection `json:"children"`
}

// SnapshotTree is the self-contained serialized document tree stored with
// every version snapshot.
type SnapshotTree struct {
	Sections   []SnapshotSection `json:"sections"`
	Unassigned []SnapshotItem    `json:"unassignedItems"`
}

// ============================================================
// Diff DTOs
// ============================================================

// FieldChange describes one watched field that differs between snapshots
type FieldChange struct {
	Field        string   `json:"field"`
	Before       any      `json:"before"`
	After        any      `json:"after"`
	Delta        *float64 `json:"delta,omitempty"`
	DeltaPercent *float64 `json:"deltaPercent,omitempty"`
}

// ItemDiff is one changed item with its per-field changes
type ItemDiff struct {
	ItemID         uuid.UUID     `json:"itemId"`
	PositionNumber string        `json:"positionNumber"`
	Name           string        `json:"name"`
	Changes        []FieldChange `json:"changes"`
}

// DiffResult is the derived comparison between two snapshots of one document
type DiffResult struct {
	DocumentID        uuid.UUID      `json:"documentId"`
	FromVersion       int            `json:"fromVersion"`
	ToVersion         int            `json:"toVersion"`
	AddedCount        int            `json:"addedCount"`
	RemovedCount      int            `json:"removedCount"`
	ChangedCount      int            `json:"changedCount"`
	UnchangedCount    int            `json:"unchangedCount"`
	Added             []SnapshotItem `json:"added"`
	Removed           []SnapshotItem `json:"removed"`
	Changed           []ItemDiff     `json:"changed"`
	TotalDelta        float64        `json:"totalDelta"`
	TotalDeltaPercent *float64       `json:"totalDeltaPercent,omitempty"`
}

// ============================================================
// Simulation DTOs
// ============================================================

// SimulationOverrides are the hypothetical indices and rates of a what-if
// run. Nil values default to 1.0 for indices and to the document's stored
// value for rates.
type SimulationOverrides struct {
	MaterialsIndex *float64 `json:"materialsIndex,omitempty" validate:"omitempty,gt=0"`
	MachineryIndex *float64 `json:"machineryIndex,omitempty" validate:"omitempty,gt=0"`
	LaborIndex     *float64 `json:"laborIndex,omitempty" validate:"omitempty,gt=0"`
	GlobalIndex    *float64 `json:"globalIndex,omitempty" validate:"omitempty,gt=0"`
	OverheadRate   *float64 `json:"overheadRate,omitempty" validate:"omitempty,gte=0"`
	ProfitRate     *float64 `json:"profitRate,omitempty" validate:"omitempty,gte=0"`
	VATRate        *float64 `json:"vatRate,omitempty" validate:"omitempty,gte=0"`
}

// SimulatedItem is the in-memory recomputation of one item
type SimulatedItem struct {
	ItemID         uuid.UUID `json:"itemId"`
	PositionNumber string    `json:"positionNumber"`
	Name           string    `json:"name"`
	ItemType       ItemType  `json:"itemType"`
	UnitPrice      float64   `json:"unitPrice"`
	TotalAmount    float64   `json:"totalAmount"`
	Delta          float64   `json:"delta"`
}

// SimulatedSection aggregates simulated totals per section
type SimulatedSection struct {
	SectionID   uuid.UUID          `json:"sectionId"`
	Number      string             `json:"number"`
	Name        string             `json:"name"`
	TotalAmount float64            `json:"totalAmount"`
	Children    []SimulatedSection `json:"children"`
}

// SimulationResult mirrors the document's total shape plus the delta
// against the last persisted totals. Nothing in it is ever stored.
type SimulationResult struct {
	DocumentID  uuid.UUID           `json:"documentId"`
	Overrides   SimulationOverrides `json:"overrides"`
	Totals      DocumentTotalsDTO   `json:"totals"`
	Persisted   DocumentTotalsDTO   `json:"persistedTotals"`
	Delta       float64             `json:"delta"`
	DeltaWithVAT float64            `json:"deltaWithVat"`
	Items       []SimulatedItem     `json:"items"`
	Sections    []SimulatedSection  `json:"sections"`
}

// ============================================================
// Request DTOs
// ============================================================

// CreateDocumentRequest creates a new draft estimate document
type CreateDocumentRequest struct {
	Name            string          `json:"name" validate:"required,max=500"`
	Number          string          `json:"number" validate:"max=100"`
	NumberingPolicy NumberingPolicy `json:"numberingPolicy" validate:"omitempty,oneof=global per_section hierarchical"`
	OverheadRate    float64         `json:"overheadRate" validate:"gte=0,lte=1000"`
	ProfitRate      float64         `json:"profitRate" validate:"gte=0,lte=1000"`
	VATRate         float64         `json:"vatRate" validate:"gte=0,lte=100"`
}

// UpdateDocumentRequest updates name/number of a document
type UpdateDocumentRequest struct {
	Name   string `json:"name" validate:"required,max=500"`
	Number string `json:"number" validate:"max=100"`
}

// UpdateRatesRequest changes the three percentage rates; a rate change
// always triggers a full recalculation.
type UpdateRatesRequest struct {
	OverheadRate float64 `json:"overheadRate" validate:"gte=0,lte=1000"`
	ProfitRate   float64 `json:"profitRate" validate:"gte=0,lte=1000"`
	VATRate      float64 `json:"vatRate" validate:"gte=0,lte=100"`
}

// CreateSectionRequest adds a section under an optional parent
type CreateSectionRequest struct {
	ParentID *uuid.UUID `json:"parentId,omitempty"`
	Name     string     `json:"name" validate:"required,max=500"`
}

// CreateItemRequest adds a line item; PositionNumber left empty is assigned
// by the numbering policy.
type CreateItemRequest struct {
	SectionID      *uuid.UUID `json:"sectionId,omitempty"`
	PositionNumber string     `json:"positionNumber" validate:"max=100"`
	Name           string     `json:"name" validate:"required,max=1000"`
	Unit           string     `json:"unit" validate:"max=100"`
	Code           string     `json:"code" validate:"max=200"`
	ItemType       ItemType   `json:"itemType" validate:"omitempty,oneof=work material machinery labor"`
	Quantity       float64    `json:"quantity" validate:"gte=0"`
	UnitPrice      float64    `json:"unitPrice" validate:"gte=0"`
	BaseUnitPrice  *float64   `json:"baseUnitPrice,omitempty" validate:"omitempty,gte=0"`
	PriceIndex     *float64   `json:"priceIndex,omitempty" validate:"omitempty,gt=0"`
	NotAccounted   bool       `json:"notAccounted"`
}

// UpdateItemRequest edits a line item. Editing quantity or unit price of a
// manual item clears the manual flag: the edited values become the formula
// inputs from then on.
type UpdateItemRequest struct {
	Name          string   `json:"name" validate:"required,max=1000"`
	Unit          string   `json:"unit" validate:"max=100"`
	Code          string   `json:"code" validate:"max=200"`
	ItemType      ItemType `json:"itemType" validate:"omitempty,oneof=work material machinery labor"`
	Quantity      float64  `json:"quantity" validate:"gte=0"`
	UnitPrice     float64  `json:"unitPrice" validate:"gte=0"`
	BaseUnitPrice *float64 `json:"baseUnitPrice,omitempty" validate:"omitempty,gte=0"`
	PriceIndex    *float64 `json:"priceIndex,omitempty" validate:"omitempty,gt=0"`
	NotAccounted  bool     `json:"notAccounted"`
}

// MoveItemRequest moves an item to another section (or to unassigned)
type MoveItemRequest struct {
	SectionID *uuid.UUID `json:"sectionId,omitempty"`
}

// ReorderItemsRequest applies a new sibling order inside one section.
// The slice must contain every item of the section exactly once.
type ReorderItemsRequest struct {
	SectionID  *uuid.UUID  `json:"sectionId,omitempty"`
	OrderedIDs []uuid.UUID `json:"orderedIds" validate:"required,min=1"`
}

// UpdateNumberingPolicyRequest switches the numbering policy; the whole
// document is renumbered immediately.
type UpdateNumberingPolicyRequest struct {
	Policy NumberingPolicy `json:"policy" validate:"required,oneof=global per_section hierarchical"`
}

// CreateSnapshotRequest creates an immutable version snapshot
type CreateSnapshotRequest struct {
	Label   string `json:"label" validate:"max=200"`
	Comment string `json:"comment" validate:"max=2000"`
}

// PaginatedResponse wraps list responses
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}
