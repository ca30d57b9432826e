package document

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type is one of the closed set of document types. The values are the
// keys the model returns in type_document.
type Type string

const (
	TypeInvoice       Type = "facture"
	TypeQuote         Type = "devis"
	TypePurchaseOrder Type = "bon_de_commande"
	TypePayslip       Type = "fiche_de_paie"
	TypeExpenseReport Type = "note_de_frais"
	TypeOther         Type = "autre"
)

// Types lists every document type in key order
var Types = []Type{TypeOther, TypePurchaseOrder, TypeQuote, TypeInvoice, TypePayslip, TypeExpenseReport}

// ClassifyType maps a model-provided type to the closed set. Anything
// unrecognized is TypeOther.
func ClassifyType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t
		}
	}
	return TypeOther
}

//go:embed types.yaml
var defaultCatalogYAML []byte

// TypeInfo holds the display attributes of a document type
type TypeInfo struct {
	Key   Type   `yaml:"key"`
	Label string `yaml:"label"`
	Icon  string `yaml:"icon"`
}

// Catalog resolves display labels for document types
type Catalog struct {
	types map[Type]TypeInfo
}

type catalogFile struct {
	Types []TypeInfo `yaml:"types"`
}

// DefaultCatalog returns the built-in labels
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultCatalogYAML, nil)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads label overrides from a YAML file on top of the defaults
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type catalog: %w", err)
	}
	c, err := parseCatalog(data, DefaultCatalog())
	if err != nil {
		return nil, fmt.Errorf("parsing type catalog %s: %w", path, err)
	}
	return c, nil
}

func parseCatalog(data []byte, base *Catalog) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	c := &Catalog{types: make(map[Type]TypeInfo, len(Types))}
	if base != nil {
		for k, v := range base.types {
			c.types[k] = v
		}
	}
	for _, info := range file.Types {
		if ClassifyType(string(info.Key)) != info.Key {
			return nil, fmt.Errorf("unknown document type %q", info.Key)
		}
		if prev, ok := c.types[info.Key]; ok {
			if info.Label == "" {
				info.Label = prev.Label
			}
			if info.Icon == "" {
				info.Icon = prev.Icon
			}
		}
		c.types[info.Key] = info
	}
	return c, nil
}

// Label returns the display label of a type, falling back to its key
func (c *Catalog) Label(t Type) string {
	if info, ok := c.types[t]; ok && info.Label != "" {
		return info.Label
	}
	return string(t)
}

// Icon returns the display icon of a type
func (c *Catalog) Icon(t Type) string {
	if info, ok := c.types[t]; ok && info.Icon != "" {
		return info.Icon
	}
	return c.types[TypeOther].Icon
}
