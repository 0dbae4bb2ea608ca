package tabular

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/molcards/internal/domain"
	"github.com/conorfennell/molcards/internal/textnorm"
)

// Format is a supported tabular file layout.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// aliases maps normalized header names to fields. Both source layouts and the
// canonical export header are accepted.
var aliases = map[string]domain.Field{
	"name":                   domain.FieldName,
	"molecule":               domain.FieldName,
	"nom":                    domain.FieldName,
	"formula":                domain.FieldFormula,
	"formule":                domain.FieldFormula,
	"pharmacological_family": domain.FieldPharmacologicalFamily,
	"groupe":                 domain.FieldPharmacologicalFamily,
	"group":                  domain.FieldPharmacologicalFamily,
	"famille_pharma":         domain.FieldPharmacologicalFamily,
	"famille_pharmaceutique": domain.FieldPharmacologicalFamily,
	"chemical_family":        domain.FieldChemicalFamily,
	"famille_chimique":       domain.FieldChemicalFamily,
	"brand_names":            domain.FieldBrandNames,
	"specialites":            domain.FieldBrandNames,
	"brands":                 domain.FieldBrandNames,
	"role":                   domain.FieldRole,
	"indication":             domain.FieldRole,
	"image":                  domain.FieldImage,
	"image_ref":              domain.FieldImage,
}

// FormatFromName picks the format from a file extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	}
	return "", domain.ErrUnknownFormat
}

// ParseFormat validates a format name such as "csv".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case CSV, XLSX:
		return f, nil
	}
	return "", domain.ErrUnknownFormat
}

// ContentType is the MIME type served for downloads.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ParseFile reads a file from the given path and extracts all molecules.
func ParseFile(path string) ([]domain.Molecule, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if format == XLSX {
		return ReadXLSX(file)
	}
	return ReadCSV(file)
}

// header returns the canonical column names in field order.
func header() []string {
	cols := make([]string, 0, len(domain.Fields))
	for _, f := range domain.Fields {
		cols = append(cols, f.Key())
	}
	return cols
}

func row(m domain.Molecule) []string {
	cells := make([]string, 0, len(domain.Fields))
	for _, f := range domain.Fields {
		cells = append(cells, m.Value(f))
	}
	return cells
}

// fromRows maps a header row plus data rows to molecules. Unknown columns are
// ignored and missing ones stay empty; short rows are padded.
func fromRows(rows [][]string) ([]domain.Molecule, error) {
	if len(rows) == 0 {
		return nil, domain.ErrNoHeader
	}

	columns := make(map[int]domain.Field)
	seen := make(map[domain.Field]bool)
	for i, h := range rows[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		key := strings.ReplaceAll(textnorm.Normalize(h), " ", "_")
		f, ok := aliases[key]
		if !ok || seen[f] {
			continue // unknown, or a later alias of a mapped column
		}
		columns[i] = f
		seen[f] = true
	}
	if !seen[domain.FieldName] {
		return nil, domain.ErrMissingNameColumn
	}

	var molecules []domain.Molecule
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		var m domain.Molecule
		for i, cell := range r {
			if f, ok := columns[i]; ok {
				m.Set(f, strings.TrimSpace(cell))
			}
		}
		molecules = append(molecules, m)
	}
	return molecules, nil
}

func blank(r []string) bool {
	for _, cell := range r {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
