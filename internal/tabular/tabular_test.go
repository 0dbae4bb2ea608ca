package tabular

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conorfennell/molcards/internal/domain"
)

func TestReadCSV(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCount int
		expectedFirst domain.Molecule
	}{
		{
			name:          "Minimal layout",
			input:         "molecule,groupe,role\nAmoxicilline,Bêta-lactamine,Antibiotique\n",
			expectedCount: 1,
			expectedFirst: domain.Molecule{Name: "Amoxicilline", PharmacologicalFamily: "Bêta-lactamine", Role: "Antibiotique"},
		},
		{
			name:          "Relational layout",
			input:         "nom,formule,famille_pharma,famille_chimique,specialites,role,image\nParacétamol,C8H9NO2,Antalgique,Anilide,\"Doliprane, Efferalgan\",Douleur,para.png\n",
			expectedCount: 1,
			expectedFirst: domain.Molecule{Name: "Paracétamol", Formula: "C8H9NO2", PharmacologicalFamily: "Antalgique", ChemicalFamily: "Anilide", BrandNames: "Doliprane, Efferalgan", Role: "Douleur", ImageRef: "para.png"},
		},
		{
			name:          "Accented and capitalised headers",
			input:         "Molécule,Spécialités,Rôle\nAzithromycine,Zithromax,Infections\n",
			expectedCount: 1,
			expectedFirst: domain.Molecule{Name: "Azithromycine", BrandNames: "Zithromax", Role: "Infections"},
		},
		{
			name:          "Missing optional columns and extra columns",
			input:         "molecule,notes\nOméprazole,IPP à jeun\n",
			expectedCount: 1,
			expectedFirst: domain.Molecule{Name: "Oméprazole"},
		},
		{
			name:          "Ragged and blank rows",
			input:         "molecule,groupe,role\nIbuprofène\n,,\n\nKétoprofène,AINS,Douleur,extra\n",
			expectedCount: 2,
			expectedFirst: domain.Molecule{Name: "Ibuprofène"},
		},
		{
			name:          "Byte order mark",
			input:         "\ufeffmolecule,groupe\nAmoxicilline,Bêta-lactamine\n",
			expectedCount: 1,
			expectedFirst: domain.Molecule{Name: "Amoxicilline", PharmacologicalFamily: "Bêta-lactamine"},
		},
		{
			name:          "Header only",
			input:         "molecule,groupe,role\n",
			expectedCount: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			molecules, err := ReadCSV(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("ReadCSV() returned an unexpected error: %v", err)
			}
			if len(molecules) != tc.expectedCount {
				t.Fatalf("Expected %d molecules, but got %d", tc.expectedCount, len(molecules))
			}
			if tc.expectedCount > 0 && molecules[0] != tc.expectedFirst {
				t.Errorf("Expected first molecule %+v, but got %+v", tc.expectedFirst, molecules[0])
			}
		})
	}
}

func TestReadCSVErrors(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected error
	}{
		{"empty input", "", domain.ErrNoHeader},
		{"no name column", "groupe,role\nAntalgique,Douleur\n", domain.ErrMissingNameColumn},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.input))
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
		})
	}

	t.Run("malformed quoting", func(t *testing.T) {
		if _, err := ReadCSV(strings.NewReader("molecule\n\"unterminated\n")); err == nil {
			t.Error("Expected an error for an unterminated quoted field")
		}
	})
}

func sampleMolecules() []domain.Molecule {
	return []domain.Molecule{
		{Name: "Amoxicilline", Formula: "C16H19N3O5S", PharmacologicalFamily: "Bêta-lactamine", ChemicalFamily: "Pénicilline", BrandNames: "Clamoxyl, Amodex", Role: "Antibiotique", ImageRef: "amox.png"},
		{Name: "Paracétamol", PharmacologicalFamily: "Antalgique", Role: "Douleur, \"fièvre\""},
	}
}

func TestWriteCSVThenRead(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleMolecules()); err != nil {
		t.Fatalf("WriteCSV() returned an unexpected error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "name,formula,pharmacological_family,chemical_family,brand_names,role,image\n") {
		t.Errorf("Expected canonical header, got %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() returned an unexpected error: %v", err)
	}
	want := sampleMolecules()
	if len(got) != len(want) {
		t.Fatalf("Expected %d molecules, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestWriteXLSXThenRead(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleMolecules()); err != nil {
		t.Fatalf("WriteXLSX() returned an unexpected error: %v", err)
	}

	got, err := ReadXLSX(&buf)
	if err != nil {
		t.Fatalf("ReadXLSX() returned an unexpected error: %v", err)
	}
	want := sampleMolecules()
	if len(got) != len(want) {
		t.Fatalf("Expected %d molecules, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.csv")
	if err := os.WriteFile(path, []byte("molecule,role\nAmoxicilline,Antibiotique\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	molecules, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(molecules) != 1 || molecules[0].Role != "Antibiotique" {
		t.Errorf("Unexpected molecules: %+v", molecules)
	}

	if _, err := ParseFile(filepath.Join(dir, "notes.md")); !errors.Is(err, domain.ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormatFromName(t *testing.T) {
	testCases := map[string]Format{
		"molecules.csv": CSV,
		"Molecules.CSV": CSV,
		"revision.xlsx": XLSX,
	}
	for name, want := range testCases {
		got, err := FormatFromName(name)
		if err != nil || got != want {
			t.Errorf("FormatFromName(%q) = %q, %v", name, got, err)
		}
	}
}
