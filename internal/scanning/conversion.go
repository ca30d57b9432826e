package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/webp" // Register WEBP decoder
)

// systemPrompt frames the model for providers that accept a system message
const systemPrompt = "You are an expert at extracting data from business documents. You read every piece of text in the image and answer with a single valid JSON object."

// documentScanPrompt is the shared prompt used by all LLM providers for scanning documents.
// The JSON keys are the wire format consumed by the document package and must not change.
const documentScanPrompt = `You are given the image of a business document. Your tasks:

1. IDENTIFY the document type.
2. IDENTIFY the client: the person or company that RECEIVES the document or to whom it is addressed.
   For an invoice or a quote the client is the recipient. For a payslip the client is the employer.
3. EXTRACT every piece of information below.

Return ONLY valid JSON (no markdown, no backticks) in this exact shape:
{
  "type_document": "facture | devis | bon_de_commande | fiche_de_paie | note_de_frais | autre",
  "confiance_type": "haute | moyenne | basse",
  "client_detecte": "Name of the client company or person",
  "emetteur": {"nom": "", "adresse": "", "telephone": "", "email": "", "siret": "", "tva_intra": ""},
  "destinataire": {"nom": "", "adresse": "", "telephone": "", "email": "", "siret": ""},
  "document": {"numero": "", "date_emission": "", "date_echeance": "", "reference": "", "objet": ""},
  "lignes": [
    {"description": "", "quantite": "", "prix_unitaire_ht": "", "montant_ht": "", "tva_pourcent": ""}
  ],
  "totaux": {"total_ht": "", "total_tva": "", "total_ttc": "", "devise": "EUR"},
  "paiement": {"mode": "", "iban": "", "bic": "", "conditions": ""},
  "notes": ""
}

Rules:
- Fill ONLY the fields found in the document, leave "" for the others
- type_document values: facture = invoice, devis = quote, bon_de_commande = purchase order,
  fiche_de_paie = payslip, note_de_frais = expense report; use "autre" when none applies
- Amounts as strings like "1234.56", dates as "DD/MM/YYYY"
- Do not include any text before or after the JSON`

// pdfToImage converts a PDF to a PNG image
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Business documents are scanned one page per upload
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// imageToPNG converts any supported image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// Go's standard image package doesn't support HEIC
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, WEBP, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-related brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// convertToPNG converts PDFs and non-PNG images to PNG format
// Returns the PNG data and a boolean indicating if conversion occurred
func convertToPNG(imageData []byte, mimeType string) ([]byte, bool, error) {
	if mimeType == "application/pdf" {
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, true, nil
	}
	if mimeType != "image/png" || isHEICFormat(imageData) {
		pngData, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, true, nil
	}
	return imageData, false, nil
}

// prepareImageData normalizes the MIME type and converts the image to PNG if needed.
// The returned data is always PNG.
func prepareImageData(imageData []byte, contentType string) ([]byte, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	finalImageData, converted, err := convertToPNG(imageData, mimeType)
	if err != nil {
		return nil, false, err
	}

	return finalImageData, converted, nil
}
