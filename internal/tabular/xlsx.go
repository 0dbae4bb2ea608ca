package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/molcards/internal/domain"
)

const sheetName = "Molecules"

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) ([]domain.Molecule, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// WriteXLSX writes molecules as a single-sheet workbook.
func WriteXLSX(w io.Writer, molecules []domain.Molecule) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	write := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(sheetName, cell, &values)
	}

	if err := write(1, header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, m := range molecules {
		if err := write(i+2, row(m)); err != nil {
			return fmt.Errorf("write row %q: %w", m.Name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
