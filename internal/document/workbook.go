package document

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet and column names of exported workbooks
const (
	SheetGeneralIndex = "General Index"
	SheetSummary      = "Summary"
	SheetDetailLines  = "Detail Lines"

	ColSourceFile  = "Source File"
	ColExtractedAt = "Extracted At"
	ColFile        = "File"

	// ExtractedAtLayout formats the extraction timestamp in the general index
	ExtractedAtLayout = "02/01/2006 15:04"

	detailSuffix = " DET"
)

// WorkbookBuilder renders documents into XLSX workbooks
type WorkbookBuilder struct {
	catalog *Catalog
}

// NewWorkbookBuilder creates a builder that labels type sheets from catalog
func NewWorkbookBuilder(catalog *Catalog) *WorkbookBuilder {
	return &WorkbookBuilder{catalog: catalog}
}

// Build renders the organized export: a general index, then one summary
// sheet and, when lines exist, one detail sheet per client and type
func (b *WorkbookBuilder) Build(docs []*Document) ([]byte, error) {
	view := Group(docs, b.catalog)

	w, err := newWorkbook(SheetGeneralIndex)
	if err != nil {
		return nil, err
	}
	defer w.f.Close()

	indexHeader := append(FlatColumns(), ColSourceFile, ColExtractedAt)
	indexRows := make([][]string, 0, len(view.All))
	for _, doc := range view.All {
		row := append(doc.Flat.Values(), doc.Filename, doc.ExtractedAt.Format(ExtractedAtLayout))
		indexRows = append(indexRows, row)
	}
	if err := w.writeTable(w.first, indexHeader, indexRows); err != nil {
		return nil, err
	}

	summaryHeader := append(FlatColumns(), ColSourceFile)
	detailHeader := append([]string{ColFile, ColDocumentNumber}, LineColumns...)
	for _, client := range view.Clients {
		for _, group := range client.Types {
			label := fmt.Sprintf("%s - %s", client.Client, group.Label)

			rows := make([][]string, 0, len(group.Documents))
			for _, doc := range group.Documents {
				rows = append(rows, append(doc.Flat.Values(), doc.Filename))
			}
			if err := w.addTable(label, summaryHeader, rows); err != nil {
				return nil, err
			}

			if !group.HasLines() {
				continue
			}
			var lines [][]string
			for _, doc := range group.Documents {
				for _, line := range doc.Lines {
					lines = append(lines, append([]string{doc.Filename, doc.Number()}, line.Values()...))
				}
			}
			if err := w.addTable(label+detailSuffix, detailHeader, lines); err != nil {
				return nil, err
			}
		}
	}

	return w.bytes()
}

// BuildSingle renders one document: a summary row and its detail lines
func (b *WorkbookBuilder) BuildSingle(doc *Document) ([]byte, error) {
	w, err := newWorkbook(SheetSummary)
	if err != nil {
		return nil, err
	}
	defer w.f.Close()

	if err := w.writeTable(w.first, FlatColumns(), [][]string{doc.Flat.Values()}); err != nil {
		return nil, err
	}
	if doc.HasLines() {
		rows := make([][]string, 0, len(doc.Lines))
		for _, line := range doc.Lines {
			rows = append(rows, line.Values())
		}
		if err := w.addTable(SheetDetailLines, LineColumns, rows); err != nil {
			return nil, err
		}
	}

	return w.bytes()
}

type workbook struct {
	f      *excelize.File
	names  *sheetNamer
	first  string
	header int
}

// newWorkbook creates a file whose default sheet is renamed to first
func newWorkbook(first string) (*workbook, error) {
	f := excelize.NewFile()
	w := &workbook{f: f, names: newSheetNamer()}

	w.first = w.names.Name(first)
	if err := f.SetSheetName(f.GetSheetName(0), w.first); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming default sheet: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	w.header = style
	return w, nil
}

// addTable creates a uniquely named sheet for label and fills it
func (w *workbook) addTable(label string, header []string, rows [][]string) error {
	name := w.names.Name(label)
	if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %q: %w", name, err)
	}
	return w.writeTable(name, header, rows)
}

func (w *workbook) writeTable(sheet string, header []string, rows [][]string) error {
	if err := w.writeRow(sheet, 1, header); err != nil {
		return err
	}
	if err := w.f.SetRowStyle(sheet, 1, 1, w.header); err != nil {
		return fmt.Errorf("styling header of %q: %w", sheet, err)
	}
	for i, row := range rows {
		if err := w.writeRow(sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *workbook) writeRow(sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("resolving cell: %w", err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing row %d of %q: %w", rowNum, sheet, err)
	}
	return nil
}

func (w *workbook) bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
