package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/conorfennell/molcards/internal/domain"
)

// ReadCSV reads a header-mapped CSV table.
func ReadCSV(r io.Reader) ([]domain.Molecule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows)
}

// WriteCSV writes molecules under the canonical header.
func WriteCSV(w io.Writer, molecules []domain.Molecule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range molecules {
		if err := cw.Write(row(m)); err != nil {
			return fmt.Errorf("write csv row %q: %w", m.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
