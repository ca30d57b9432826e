package document

import "github.com/zombor/docscan/internal/scanning"

// LineItem is one itemized line of a document
type LineItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPriceHT string `json:"unit_price_ht"`
	AmountHT    string `json:"amount_ht"`
	TaxRate     string `json:"tax_rate"`
}

// LineColumns are the detail sheet column labels for line items
var LineColumns = []string{"Description", "Quantity", "Unit Price excl. Tax", "Amount excl. Tax", "Tax (%)"}

// ExtractLines returns the itemized lines of a raw record, or nil when
// there are none
func ExtractLines(raw scanning.Record) []LineItem {
	items := raw.List("lignes")
	if len(items) == 0 {
		return nil
	}
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineItem{
			Description: item.String("description"),
			Quantity:    item.String("quantite"),
			UnitPriceHT: item.String("prix_unitaire_ht"),
			AmountHT:    item.String("montant_ht"),
			TaxRate:     item.String("tva_pourcent"),
		})
	}
	return lines
}

// Values returns the line values in LineColumns order
func (l LineItem) Values() []string {
	return []string{l.Description, l.Quantity, l.UnitPriceHT, l.AmountHT, l.TaxRate}
}
