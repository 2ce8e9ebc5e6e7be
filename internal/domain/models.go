package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// BeforeCreate assigns the primary key so the models work on databases
// without gen_random_uuid() (the SQLite test database in particular).
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// DocumentStatus represents the lifecycle status of an estimate document
type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "draft"
	DocumentStatusApproved DocumentStatus = "approved"
)

// IsValid checks if the DocumentStatus is a valid enum value
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusApproved:
		return true
	}
	return false
}

// NumberingPolicy selects how item position numbers are assigned
type NumberingPolicy string

const (
	// NumberingGlobal uses a single counter across the whole document
	NumberingGlobal NumberingPolicy = "global"
	// NumberingPerSection restarts the counter at 1 in every section
	NumberingPerSection NumberingPolicy = "per_section"
	// NumberingHierarchical prefixes the per-section counter with the
	// section's hierarchical number, e.g. "2.1.3"
	NumberingHierarchical NumberingPolicy = "hierarchical"
)

// IsValid checks if the NumberingPolicy is a valid enum value
func (p NumberingPolicy) IsValid() bool {
	switch p {
	case NumberingGlobal, NumberingPerSection, NumberingHierarchical:
		return true
	}
	return false
}

// ItemType classifies a priced line entry
type ItemType string

const (
	ItemTypeWork      ItemType = "work"
	ItemTypeMaterial  ItemType = "material"
	ItemTypeMachinery ItemType = "machinery"
	ItemTypeLabor     ItemType = "labor"
)

// IsValid checks if the ItemType is a valid enum value
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeWork, ItemTypeMaterial, ItemTypeMachinery, ItemTypeLabor:
		return true
	}
	return false
}

// EstimateDocument is the root aggregate of an estimate.
//
// Cached totals are authoritative only while TotalsDirty is false. Every
// structural or rate mutation sets the flag; only a full recalculation
// clears it.
type EstimateDocument struct {
	BaseModel
	Name            string          `gorm:"type:varchar(500);not null;index" json:"name"`
	Number          string          `gorm:"type:varchar(100);index" json:"number"`
	Status          DocumentStatus  `gorm:"type:varchar(50);not null;default:'draft';index" json:"status"`
	NumberingPolicy NumberingPolicy `gorm:"type:varchar(50);not null;default:'per_section';column:numbering_policy" json:"numberingPolicy"`

	OverheadRate float64 `gorm:"type:decimal(8,4);not null;default:0;column:overhead_rate" json:"overheadRate"`
	ProfitRate   float64 `gorm:"type:decimal(8,4);not null;default:0;column:profit_rate" json:"profitRate"`
	VATRate      float64 `gorm:"type:decimal(8,4);not null;default:0;column:vat_rate" json:"vatRate"`

	TotalDirect        float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_direct" json:"totalDirect"`
	TotalOverhead      float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_overhead" json:"totalOverhead"`
	TotalProfit        float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_profit" json:"totalProfit"`
	TotalAmount        float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_amount" json:"totalAmount"`
	TotalAmountWithVAT float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_amount_with_vat" json:"totalAmountWithVat"`

	TotalsDirty  bool `gorm:"not null;column:totals_dirty" json:"totalsDirty"`
	VersionCount int  `gorm:"not null;default:0;column:version_count" json:"versionCount"`

	Sections []Section `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
	Items    []Item    `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsApproved reports whether the document has left the draft stage
func (d *EstimateDocument) IsApproved() bool {
	return d.Status == DocumentStatusApproved
}

// Section is a node in the strict section tree of a document.
// Number is always a dotted extension of the parent's Number, and siblings
// are numbered consecutively from 1 after every renumbering pass.
type Section struct {
	BaseModel
	DocumentID  uuid.UUID  `gorm:"type:uuid;not null;index;column:document_id" json:"documentId"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index;column:parent_id" json:"parentId,omitempty"`
	Number      string     `gorm:"type:varchar(100);not null" json:"number"`
	Name        string     `gorm:"type:varchar(500);not null" json:"name"`
	SortOrder   int        `gorm:"not null;default:0;column:sort_order" json:"sortOrder"`
	TotalAmount float64    `gorm:"type:decimal(15,2);not null;default:0;column:total_amount" json:"totalAmount"`

	Children []Section `gorm:"foreignKey:ParentID" json:"-"`
	Items    []Item    `gorm:"foreignKey:SectionID" json:"-"`
}

// Depth returns the hierarchy depth encoded in the section number
// ("2.1.3" -> 2, top level -> 0).
func (s *Section) Depth() int {
	depth := 0
	for _, r := range s.Number {
		if r == '.' {
			depth++
		}
	}
	return depth
}

// Item is a priced line entry attached to at most one section.
//
// When Manual is set the imported total is authoritative and DirectCost is
// taken from ImportedTotal instead of Quantity*UnitPrice. NotAccounted items
// are reference-only lines excluded from every rollup.
type Item struct {
	BaseModel
	DocumentID uuid.UUID  `gorm:"type:uuid;not null;index;column:document_id" json:"documentId"`
	SectionID  *uuid.UUID `gorm:"type:uuid;index;column:section_id" json:"sectionId,omitempty"`

	PositionNumber string   `gorm:"type:varchar(100);column:position_number" json:"positionNumber"`
	Name           string   `gorm:"type:varchar(1000);not null" json:"name"`
	Unit           string   `gorm:"type:varchar(100)" json:"unit"`
	Code           string   `gorm:"type:varchar(200)" json:"code"`
	ItemType       ItemType `gorm:"type:varchar(50);not null;default:'work';column:item_type;index" json:"itemType"`

	Quantity      float64  `gorm:"type:decimal(15,4);not null;default:0" json:"quantity"`
	UnitPrice     float64  `gorm:"type:decimal(15,2);not null;default:0;column:unit_price" json:"unitPrice"`
	BaseUnitPrice *float64 `gorm:"type:decimal(15,2);column:base_unit_price" json:"baseUnitPrice,omitempty"`
	PriceIndex    *float64 `gorm:"type:decimal(10,4);column:price_index" json:"priceIndex,omitempty"`

	Manual         bool     `gorm:"not null;default:false" json:"manual"`
	ImportedTotal  *float64 `gorm:"type:decimal(15,2);column:imported_total" json:"importedTotal,omitempty"`
	ManualOverhead *float64 `gorm:"type:decimal(15,2);column:manual_overhead" json:"manualOverhead,omitempty"`
	ManualProfit   *float64 `gorm:"type:decimal(15,2);column:manual_profit" json:"manualProfit,omitempty"`
	NotAccounted   bool     `gorm:"not null;default:false;column:not_accounted" json:"notAccounted"`

	DirectCost     float64 `gorm:"type:decimal(15,2);not null;default:0;column:direct_cost" json:"directCost"`
	OverheadAmount float64 `gorm:"type:decimal(15,2);not null;default:0;column:overhead_amount" json:"overheadAmount"`
	ProfitAmount   float64 `gorm:"type:decimal(15,2);not null;default:0;column:profit_amount" json:"profitAmount"`
	TotalAmount    float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_amount" json:"totalAmount"`

	SortOrder int `gorm:"not null;default:0;column:sort_order" json:"sortOrder"`
}

// EffectiveBasePrice returns the base unit price with fallback to the
// current unit price, as used by what-if simulation.
func (i *Item) EffectiveBasePrice() float64 {
	if i.BaseUnitPrice != nil {
		return *i.BaseUnitPrice
	}
	return i.UnitPrice
}

// VersionSnapshot is an immutable, self-contained copy of a document's tree
// and totals at one point in time. Snapshots are append-only: there is no
// repository method to update or delete one.
type VersionSnapshot struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	DocumentID    uuid.UUID `gorm:"type:uuid;not null;index;column:document_id;uniqueIndex:idx_snapshot_doc_version" json:"documentId"`
	VersionNumber int       `gorm:"not null;column:version_number;uniqueIndex:idx_snapshot_doc_version" json:"versionNumber"`
	Label         string    `gorm:"type:varchar(200)" json:"label"`
	Comment       string    `gorm:"type:text" json:"comment"`
	CreatedByID   string    `gorm:"type:varchar(100);column:created_by_id" json:"createdById"`
	CreatedByName string    `gorm:"type:varchar(200);column:created_by_name" json:"createdByName"`

	Tree []byte `gorm:"not null" json:"-"`

	TotalDirect        float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_direct" json:"totalDirect"`
	TotalOverhead      float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_overhead" json:"totalOverhead"`
	TotalProfit        float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_profit" json:"totalProfit"`
	TotalAmount        float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_amount" json:"totalAmount"`
	TotalAmountWithVAT float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_amount_with_vat" json:"totalAmountWithVat"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// BeforeCreate assigns the primary key (see BaseModel.BeforeCreate).
func (v *VersionSnapshot) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization
func (VersionSnapshot) TableName() string {
	return "version_snapshots"
}

// ImportAudit records how a source file was interpreted: which adapter won,
// where the header row was found and how each column was mapped. It exists
// for auditability of the detection heuristics and is never read back by
// the ingestion pipeline.
type ImportAudit struct {
	BaseModel
	DocumentID     uuid.UUID      `gorm:"type:uuid;not null;index;column:document_id" json:"documentId"`
	Adapter        string         `gorm:"type:varchar(100);not null" json:"adapter"`
	SourceFileName string         `gorm:"type:varchar(500);column:source_file_name" json:"sourceFileName"`
	SourceBlobKey  string         `gorm:"type:varchar(500);column:source_blob_key" json:"sourceBlobKey"`
	EstimateType   string         `gorm:"type:varchar(100);column:estimate_type" json:"estimateType"`
	ProgramVersion string         `gorm:"type:varchar(200);column:program_version" json:"programVersion"`
	Encoding       string         `gorm:"type:varchar(50)" json:"encoding"`
	Delimiter      string         `gorm:"type:varchar(10)" json:"delimiter"`
	HeaderRow      int            `gorm:"column:header_row" json:"headerRow"`
	SectionCount   int            `gorm:"column:section_count" json:"sectionCount"`
	ItemCount      int            `gorm:"column:item_count" json:"itemCount"`
	SkippedRows    int            `gorm:"column:skipped_rows" json:"skippedRows"`
	Columns        []byte         `gorm:"type:jsonb" json:"-"`
	Warnings       pq.StringArray `gorm:"type:text[]" json:"warnings"`
}
