package document

import "github.com/zombor/docscan/internal/scanning"

// Flat record column labels
const (
	ColClient           = "Client"
	ColType             = "Type"
	ColConfidence       = "Confidence"
	ColIssuer           = "Issuer"
	ColIssuerAddress    = "Issuer Address"
	ColIssuerPhone      = "Issuer Phone"
	ColIssuerEmail      = "Issuer Email"
	ColIssuerTaxID      = "Issuer Tax ID"
	ColIssuerVAT        = "Issuer VAT Number"
	ColRecipient        = "Recipient"
	ColRecipientAddress = "Recipient Address"
	ColDocumentNumber   = "Document No."
	ColIssueDate        = "Issue Date"
	ColDueDate          = "Due Date"
	ColReference        = "Reference"
	ColSubject          = "Subject"
	ColTotalExclTax     = "Total excl. Tax"
	ColTotalTax         = "Total Tax"
	ColTotalInclTax     = "Total incl. Tax"
	ColCurrency         = "Currency"
	ColPaymentMethod    = "Payment Method"
	ColIBAN             = "IBAN"
	ColNotes            = "Notes"
)

// FlatRecord maps column labels to values
type FlatRecord map[string]string

type flatField struct {
	label string
	path  []string
}

// flatFields fixes both the column order and where each value comes from
var flatFields = []flatField{
	{ColClient, []string{"client_detecte"}},
	{ColType, []string{"type_document"}},
	{ColConfidence, []string{"confiance_type"}},
	{ColIssuer, []string{"emetteur", "nom"}},
	{ColIssuerAddress, []string{"emetteur", "adresse"}},
	{ColIssuerPhone, []string{"emetteur", "telephone"}},
	{ColIssuerEmail, []string{"emetteur", "email"}},
	{ColIssuerTaxID, []string{"emetteur", "siret"}},
	{ColIssuerVAT, []string{"emetteur", "tva_intra"}},
	{ColRecipient, []string{"destinataire", "nom"}},
	{ColRecipientAddress, []string{"destinataire", "adresse"}},
	{ColDocumentNumber, []string{"document", "numero"}},
	{ColIssueDate, []string{"document", "date_emission"}},
	{ColDueDate, []string{"document", "date_echeance"}},
	{ColReference, []string{"document", "reference"}},
	{ColSubject, []string{"document", "objet"}},
	{ColTotalExclTax, []string{"totaux", "total_ht"}},
	{ColTotalTax, []string{"totaux", "total_tva"}},
	{ColTotalInclTax, []string{"totaux", "total_ttc"}},
	{ColCurrency, []string{"totaux", "devise"}},
	{ColPaymentMethod, []string{"paiement", "mode"}},
	{ColIBAN, []string{"paiement", "iban"}},
	{ColNotes, []string{"notes"}},
}

// FlatColumns returns the flat record labels in column order
func FlatColumns() []string {
	cols := make([]string, len(flatFields))
	for i, f := range flatFields {
		cols[i] = f.label
	}
	return cols
}

// Flatten pulls the known fields of a raw record into a single-level
// record. Every label is always present; missing fields are "".
func Flatten(raw scanning.Record) FlatRecord {
	flat := make(FlatRecord, len(flatFields))
	for _, f := range flatFields {
		flat[f.label] = raw.String(f.path...)
	}
	return flat
}

// Values returns the record values in column order
func (f FlatRecord) Values() []string {
	values := make([]string, len(flatFields))
	for i, field := range flatFields {
		values[i] = f[field.label]
	}
	return values
}
