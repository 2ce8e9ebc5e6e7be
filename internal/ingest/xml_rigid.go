package ingest

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/smetaworks/estimate-api/internal/domain"
)

const rigidXMLAdapterName = "xml"

// RigidXMLAdapter reads the fixed estimate XML schema: an <estimate> root
// with nested <section> elements containing <item> leaves. Classification
// here is structural, not heuristic.
type RigidXMLAdapter struct{}

// NewRigidXMLAdapter creates the rigid-schema XML adapter
func NewRigidXMLAdapter() *RigidXMLAdapter {
	return &RigidXMLAdapter{}
}

func (a *RigidXMLAdapter) Name() string { return rigidXMLAdapterName }

// Detect requires the <estimate> root element
func (a *RigidXMLAdapter) Detect(data []byte) float64 {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.Contains(head, []byte("<estimate")) {
		return 0.95
	}
	return 0
}

type xmlEstimate struct {
	XMLName  xml.Name     `xml:"estimate"`
	Name     string       `xml:"name,attr"`
	Type     string       `xml:"type,attr"`
	Program  string       `xml:"program,attr"`
	Sections []xmlSection `xml:"section"`
	Items    []xmlItem    `xml:"item"`
}

type xmlSection struct {
	Number   string       `xml:"number,attr"`
	Name     string       `xml:"name,attr"`
	Sections []xmlSection `xml:"section"`
	Items    []xmlItem    `xml:"item"`
}

type xmlItem struct {
	Number       string `xml:"number,attr"`
	Name         string `xml:"name,attr"`
	Unit         string `xml:"unit,attr"`
	Code         string `xml:"code,attr"`
	Type         string `xml:"type,attr"`
	Quantity     string `xml:"quantity,attr"`
	Price        string `xml:"price,attr"`
	Total        string `xml:"total,attr"`
	Manual       bool   `xml:"manual,attr"`
	NotAccounted bool   `xml:"notAccounted,attr"`
}

// Parse unmarshals the schema and flattens it into classified rows
func (a *RigidXMLAdapter) Parse(data []byte) (*domain.ImportDocument, error) {
	var est xmlEstimate
	if err := xml.Unmarshal(data, &est); err != nil {
		return nil, ingestErr(rigidXMLAdapterName, 0, ErrUnparseable)
	}

	var rows []domain.ImportRow
	rows = appendXMLItems(rows, est.Items, nil)
	for i := range est.Sections {
		rows = appendXMLSection(rows, &est.Sections[i], nil)
	}

	return &domain.ImportDocument{
		Name: est.Name,
		Meta: domain.ImportMeta{
			Adapter:        rigidXMLAdapterName,
			EstimateType:   est.Type,
			ProgramVersion: est.Program,
		},
		Rows: rows,
	}, nil
}

func appendXMLSection(rows []domain.ImportRow, sec *xmlSection, path []string) []domain.ImportRow {
	rows = append(rows, domain.ImportRow{
		Kind:        domain.RowKindSection,
		Number:      strings.TrimSuffix(strings.TrimSpace(sec.Number), "."),
		Name:        sec.Name,
		SectionPath: append([]string(nil), path...),
	})

	token := strings.TrimSuffix(strings.TrimSpace(sec.Number), ".")
	if token == "" {
		token = sec.Name
	}
	childPath := append(append([]string(nil), path...), token)

	rows = appendXMLItems(rows, sec.Items, childPath)
	for i := range sec.Sections {
		rows = appendXMLSection(rows, &sec.Sections[i], childPath)
	}
	return rows
}

func appendXMLItems(rows []domain.ImportRow, items []xmlItem, path []string) []domain.ImportRow {
	for _, it := range items {
		if it.Name == "" {
			continue
		}
		rows = append(rows, domain.ImportRow{
			Kind:        domain.RowKindItem,
			Number:      it.Number,
			Name:        it.Name,
			Unit:        it.Unit,
			Code:        it.Code,
			Quantity:    ParseNumber(it.Quantity),
			UnitPrice:   ParseNumber(it.Price),
			Total:       ParseNumber(it.Total),
			ItemType:    parseItemType(it.Type),
			SectionPath: append([]string(nil), path...),
		})
	}
	return rows
}

func parseItemType(s string) domain.ItemType {
	t := domain.ItemType(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t
	}
	return domain.ItemTypeWork
}
