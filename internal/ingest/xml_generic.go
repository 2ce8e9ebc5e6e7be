package ingest

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/smetaworks/estimate-api/internal/domain"
	"go.uber.org/zap"
)

const genericXMLAdapterName = "xml-generic"

// GenericXMLAdapter handles schema-less XML dialects. The same heuristic
// spirit as tabular header detection applies at the element level: repeated
// sibling element groups are scored by the presence of name/price/quantity
// -like attributes or children, and the best-scoring repeated group is
// treated as the item collection.
type GenericXMLAdapter struct {
	logger *zap.Logger
}

// NewGenericXMLAdapter creates the schema-less XML adapter
func NewGenericXMLAdapter(logger *zap.Logger) *GenericXMLAdapter {
	return &GenericXMLAdapter{logger: logger}
}

func (a *GenericXMLAdapter) Name() string { return genericXMLAdapterName }

// Detect accepts any XML-looking payload; the rigid adapter has already
// claimed the known schema at higher priority.
func (a *GenericXMLAdapter) Detect(data []byte) float64 {
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<")) {
		return 0.6
	}
	return 0
}

// element field keyword sets, matched against lowercased attribute and
// child element names
var (
	xmlNameKeys  = []string{"name", "caption", "title", "наименование", "наим"}
	xmlQtyKeys   = []string{"quantity", "qty", "count", "kolvo", "количество", "кол"}
	xmlPriceKeys = []string{"price", "cost", "цена", "стоимость", "cena"}
	xmlUnitKeys  = []string{"unit", "measure", "ед", "изм"}
	xmlCodeKeys  = []string{"code", "шифр", "код", "justification", "обоснование"}
	xmlNumKeys   = []string{"number", "num", "номер", "pos", "позиция"}
)

type xmlNode struct {
	name     string
	attrs    map[string]string
	text     string
	children []*xmlNode
}

// Parse builds a generic node tree, elects the item group and flattens the
// surrounding named elements into section markers.
func (a *GenericXMLAdapter) Parse(data []byte) (*domain.ImportDocument, error) {
	root, err := parseNodeTree(data)
	if err != nil {
		return nil, ingestErr(genericXMLAdapterName, 0, ErrUnparseable)
	}

	itemElement, score := electItemElement(root)
	if itemElement == "" {
		return nil, ingestErr(genericXMLAdapterName, 0, ErrNoHeader)
	}
	a.logger.Debug("elected item element",
		zap.String("element", itemElement),
		zap.Int("score", score))

	var rows []domain.ImportRow
	collectGenericRows(root, itemElement, nil, &rows)

	return &domain.ImportDocument{
		Meta: domain.ImportMeta{Adapter: genericXMLAdapterName},
		Rows: rows,
	}, nil
}

// parseNodeTree decodes arbitrary XML into a generic node tree
func parseNodeTree(data []byte) (*xmlNode, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	root := &xmlNode{name: ""}
	stack := []*xmlNode{root}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: strings.ToLower(t.Name.Local), attrs: map[string]string{}}
			for _, attr := range t.Attr {
				node.attrs[strings.ToLower(attr.Name.Local)] = attr.Value
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, node)
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if text := strings.TrimSpace(string(t)); text != "" {
				stack[len(stack)-1].text += text
			}
		}
	}
	if len(root.children) == 0 {
		return nil, ErrUnparseable
	}
	return root, nil
}

// electItemElement scores every repeated sibling group in the tree and
// returns the element name of the best one. A group needs at least a name
// field plus one of quantity/price to qualify.
func electItemElement(root *xmlNode) (string, int) {
	bestName, bestScore := "", 0

	var walk func(n *xmlNode)
	walk = func(n *xmlNode) {
		groups := map[string][]*xmlNode{}
		for _, c := range n.children {
			groups[c.name] = append(groups[c.name], c)
		}
		for name, members := range groups {
			if len(members) < 2 {
				continue
			}
			hits := fieldHits(members[0])
			if len(members) > 1 {
				// confirm on a second member, loose attributes on one
				// element should not elect the whole group
				second := fieldHits(members[1])
				if second < hits {
					hits = second
				}
			}
			if hits < 2 {
				continue
			}
			score := hits * len(members)
			if score > bestScore {
				bestName, bestScore = name, score
			}
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	return bestName, bestScore
}

// fieldHits counts how many canonical field groups resolve on a node
func fieldHits(n *xmlNode) int {
	hits := 0
	if lookupField(n, xmlNameKeys) != "" {
		hits++
	}
	if lookupField(n, xmlQtyKeys) != "" {
		hits++
	}
	if lookupField(n, xmlPriceKeys) != "" {
		hits++
	}
	return hits
}

// lookupField finds a field value by keyword among attributes first, then
// child element names.
func lookupField(n *xmlNode, keys []string) string {
	for _, key := range keys {
		for attrName, v := range n.attrs {
			if strings.Contains(attrName, key) && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	for _, key := range keys {
		for _, c := range n.children {
			if strings.Contains(c.name, key) && strings.TrimSpace(c.text) != "" {
				return strings.TrimSpace(c.text)
			}
		}
	}
	return ""
}

// collectGenericRows walks the tree emitting section markers for named
// wrapper elements that contain items, and item rows for the elected
// element.
func collectGenericRows(n *xmlNode, itemElement string, path []string, rows *[]domain.ImportRow) {
	for _, c := range n.children {
		if c.name == itemElement {
			name := lookupField(c, xmlNameKeys)
			if name == "" {
				continue
			}
			*rows = append(*rows, domain.ImportRow{
				Kind:        domain.RowKindItem,
				Number:      lookupField(c, xmlNumKeys),
				Name:        name,
				Unit:        lookupField(c, xmlUnitKeys),
				Code:        lookupField(c, xmlCodeKeys),
				Quantity:    ParseNumber(lookupField(c, xmlQtyKeys)),
				UnitPrice:   ParseNumber(lookupField(c, xmlPriceKeys)),
				ItemType:    domain.ItemTypeWork,
				SectionPath: append([]string(nil), path...),
			})
			continue
		}

		sectionName := lookupField(c, xmlNameKeys)
		if sectionName != "" && subtreeContains(c, itemElement) {
			*rows = append(*rows, domain.ImportRow{
				Kind:        domain.RowKindSection,
				Name:        sectionName,
				Number:      lookupField(c, xmlNumKeys),
				SectionPath: append([]string(nil), path...),
			})
			collectGenericRows(c, itemElement, append(path, sectionName), rows)
			continue
		}

		collectGenericRows(c, itemElement, path, rows)
	}
}

func subtreeContains(n *xmlNode, element string) bool {
	for _, c := range n.children {
		if c.name == element || subtreeContains(c, element) {
			return true
		}
	}
	return false
}
