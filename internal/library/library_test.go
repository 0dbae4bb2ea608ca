package library

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conorfennell/molcards/internal/domain"
	"github.com/conorfennell/molcards/internal/quiz"
	"github.com/conorfennell/molcards/internal/storage"
	"github.com/conorfennell/molcards/internal/tabular"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "molecules.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func names(molecules []domain.Molecule) []string {
	out := make([]string, len(molecules))
	for i, m := range molecules {
		out[i] = m.Name
	}
	return out
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	added, err := lib.Add(ctx, domain.Molecule{Name: "  Amoxicilline ", Role: "Antibiotique"})
	if err != nil {
		t.Fatalf("Add() returned an unexpected error: %v", err)
	}
	if added.Name != "Amoxicilline" {
		t.Errorf("Expected trimmed name, got '%s'", added.Name)
	}

	_, err = lib.Add(ctx, domain.Molecule{Name: "   ", Role: "Antalgique"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected a ValidationError, got %v", err)
	}
	if len(verr.Issues) != 1 || verr.Issues[0].Field != "Molécule" {
		t.Errorf("Expected one issue on the name, got %+v", verr.Issues)
	}

	molecules, _ := lib.List(ctx)
	if len(molecules) != 1 {
		t.Errorf("Expected the invalid molecule not to be stored, got %v", names(molecules))
	}
}

func TestMerge(t *testing.T) {
	existing := []domain.Molecule{{ID: 1, Name: "Amoxicilline", Role: "Antibiotique"}}
	incoming := []domain.Molecule{
		{Name: "amoxicilline", Role: "autre"},
		{Name: "Paracétamol", Role: "Antalgique"},
		{Name: "PARACETAMOL", Role: "doublon"},
		{Name: "  "},
		{Name: "Oméprazole"},
	}

	added, report := Merge(existing, incoming)
	if got := strings.Join(names(added), ","); got != "Paracétamol,Oméprazole" {
		t.Errorf("Expected Paracétamol,Oméprazole to be added, got %s", got)
	}
	if added[0].Role != "Antalgique" {
		t.Errorf("Expected the first occurrence to win, got role '%s'", added[0].Role)
	}
	want := ImportReport{Read: 5, Added: 2, Duplicates: 2, Skipped: 1}
	if report != want {
		t.Errorf("Expected report %+v, got %+v", want, report)
	}
}

func TestImportDeduplicatesOnName(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	if _, err := lib.Add(ctx, domain.Molecule{Name: "Amoxicilline", PharmacologicalFamily: "Bêta-lactamine", Role: "Antibiotique"}); err != nil {
		t.Fatal(err)
	}

	csv := "molecule,groupe,role\nAmoxicilline,Pénicilline A,Antibiotique\nParacétamol,Antalgique,Douleur\n"
	report, err := lib.Import(ctx, strings.NewReader(csv), tabular.CSV)
	if err != nil {
		t.Fatalf("Import() returned an unexpected error: %v", err)
	}
	if report.Added != 1 || report.Duplicates != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}

	molecules, _ := lib.List(ctx)
	count := 0
	for _, m := range molecules {
		if m.Name == "Amoxicilline" {
			count++
			if m.PharmacologicalFamily != "Bêta-lactamine" {
				t.Errorf("Expected the existing record to be kept, got %+v", m)
			}
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly one Amoxicilline, got %d", count)
	}
	if len(molecules) != 2 {
		t.Errorf("Expected 2 molecules, got %v", names(molecules))
	}
}

func TestImportFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	if _, err := lib.Add(ctx, domain.Molecule{Name: "Amoxicilline"}); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name  string
		input string
	}{
		{"no name column", "groupe,role\nAntalgique,Douleur\n"},
		{"malformed", "molecule\n\"Paracétamol\n"},
		{"empty", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := lib.Import(ctx, strings.NewReader(tc.input), tabular.CSV); err == nil {
				t.Fatal("Expected an import error")
			}
			molecules, _ := lib.List(ctx)
			if len(molecules) != 1 {
				t.Errorf("Expected store unchanged, got %v", names(molecules))
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, format := range []tabular.Format{tabular.CSV, tabular.XLSX} {
		t.Run(string(format), func(t *testing.T) {
			src := newTestLibrary(t)
			in := []domain.Molecule{
				{Name: "Amoxicilline", Formula: "C16H19N3O5S", PharmacologicalFamily: "Bêta-lactamine", ChemicalFamily: "Pénicilline", BrandNames: "Clamoxyl, Amodex", Role: "Antibiotique", ImageRef: "amox.png"},
				{Name: "Paracétamol", PharmacologicalFamily: "Antalgique", Role: "Douleur"},
			}
			for _, m := range in {
				if _, err := src.Add(ctx, m); err != nil {
					t.Fatal(err)
				}
			}

			var buf bytes.Buffer
			if err := src.Export(ctx, &buf, format); err != nil {
				t.Fatalf("Export() returned an unexpected error: %v", err)
			}

			dst := newTestLibrary(t)
			if _, err := dst.Import(ctx, &buf, format); err != nil {
				t.Fatalf("Import() returned an unexpected error: %v", err)
			}
			out, _ := dst.List(ctx)
			if len(out) != len(in) {
				t.Fatalf("Expected %d molecules, got %d", len(in), len(out))
			}
			for i := range in {
				out[i].ID = 0
				if out[i] != in[i] {
					t.Errorf("Row %d: expected %+v, got %+v", i, in[i], out[i])
				}
			}
		})
	}
}

func TestAddRejectsNormalizedDuplicate(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	for _, name := range []string{"Paracétamol", "Acide folique"} {
		if _, err := lib.Add(ctx, domain.Molecule{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	for _, name := range []string{"paracetamol", "PARACÉTAMOL", "Acide  folique"} {
		t.Run(name, func(t *testing.T) {
			_, err := lib.Add(ctx, domain.Molecule{Name: name})
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected a ValidationError, got %v", err)
			}
			if !strings.Contains(verr.Error(), "déjà présente") {
				t.Errorf("Expected a duplicate message, got '%s'", verr.Error())
			}
		})
	}

	molecules, _ := lib.List(ctx)
	if len(molecules) != 2 {
		t.Errorf("Expected only the first spellings to be stored, got %v", names(molecules))
	}
}

func TestExportImportRoundTripKeepsEveryAddedMolecule(t *testing.T) {
	ctx := context.Background()
	src := newTestLibrary(t)
	var stored int
	for _, name := range []string{"Paracétamol", "paracetamol", "Acide  folique", "Acide folique", "Oméprazole"} {
		if _, err := src.Add(ctx, domain.Molecule{Name: name}); err == nil {
			stored++
		}
	}

	var buf bytes.Buffer
	if err := src.Export(ctx, &buf, tabular.CSV); err != nil {
		t.Fatalf("Export() returned an unexpected error: %v", err)
	}
	dst := newTestLibrary(t)
	report, err := dst.Import(ctx, &buf, tabular.CSV)
	if err != nil {
		t.Fatalf("Import() returned an unexpected error: %v", err)
	}
	if report.Added != stored || report.Duplicates != 0 {
		t.Errorf("Expected %d added and no duplicates, got %+v", stored, report)
	}
	srcNames, _ := src.List(ctx)
	dstNames, _ := dst.List(ctx)
	if got, want := strings.Join(names(dstNames), ","), strings.Join(names(srcNames), ","); got != want {
		t.Errorf("Expected %s after the round trip, got %s", want, got)
	}
}

func TestQuiz(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	qs, err := lib.Quiz(ctx, quiz.ModeGroupToName, 10)
	if err != nil {
		t.Fatalf("Quiz() returned an unexpected error: %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("Expected no questions from an empty store, got %d", len(qs))
	}
	if _, ok, err := lib.RandomQuestion(ctx, quiz.ModeGroupToName); ok || err != nil {
		t.Errorf("Expected no random question from an empty store, got ok=%v err=%v", ok, err)
	}

	for _, name := range []string{"Amoxicilline", "Paracétamol", "Oméprazole"} {
		if _, err := lib.Add(ctx, domain.Molecule{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	qs, err = lib.Quiz(ctx, quiz.ModeNameToGroupRole, 2)
	if err != nil {
		t.Fatalf("Quiz() returned an unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Errorf("Expected 2 questions, got %d", len(qs))
	}

	q, ok, err := lib.RandomQuestion(ctx, quiz.ModeNameToGroupRole)
	if err != nil || !ok {
		t.Fatalf("RandomQuestion() = %v, %v", ok, err)
	}
	if q.Prompt != q.RecordName {
		t.Errorf("Expected the name as prompt, got '%s' for %s", q.Prompt, q.RecordName)
	}
}

type failingStore struct {
	Store
}

func (failingStore) List(context.Context) ([]domain.Molecule, error) {
	return nil, nil
}

func (failingStore) Append(context.Context, ...domain.Molecule) error {
	return errors.New("disk full")
}

func TestImportReportsStoreFailure(t *testing.T) {
	lib := New(failingStore{})
	_, err := lib.Import(context.Background(), strings.NewReader("molecule\nAmoxicilline\n"), tabular.CSV)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected the store error to surface, got %v", err)
	}
}
