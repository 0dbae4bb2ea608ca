package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/molcards/internal/domain"
	"github.com/conorfennell/molcards/internal/quiz"
	"github.com/conorfennell/molcards/internal/tabular"
	"github.com/conorfennell/molcards/internal/textnorm"
)

// Store holds the molecule record set.
type Store interface {
	Append(ctx context.Context, molecules ...domain.Molecule) error
	List(ctx context.Context) ([]domain.Molecule, error)
	Random(ctx context.Context) (*domain.Molecule, error)
}

// Library contains the record-set use cases: add, browse, import, export and
// quiz generation. It never depends on a concrete store.
type Library struct {
	store    Store
	validate *validator.Validate
}

// New wraps a store.
func New(store Store) *Library {
	return &Library{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Issue captures a validation problem with a molecule field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates molecule validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a single line.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "molecule validation failed"
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(parts, "; ")
}

var fieldLabels = map[string]string{
	"Name":                  domain.FieldName.Label(),
	"Formula":               domain.FieldFormula.Label(),
	"PharmacologicalFamily": domain.FieldPharmacologicalFamily.Label(),
	"ChemicalFamily":        domain.FieldChemicalFamily.Label(),
	"BrandNames":            domain.FieldBrandNames.Label(),
	"Role":                  domain.FieldRole.Label(),
	"ImageRef":              domain.FieldImage.Label(),
}

func (l *Library) check(m domain.Molecule) error {
	err := l.validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		msg := "valeur invalide"
		switch fe.Tag() {
		case "required":
			msg = "champ obligatoire"
		case "max":
			msg = fmt.Sprintf("%s caractères maximum", fe.Param())
		}
		out.Issues = append(out.Issues, Issue{Field: fieldLabels[fe.Field()], Message: msg})
	}
	return out
}

// Add validates and stores one molecule. Nothing is stored when validation
// fails or when a molecule with the same normalized name already exists.
func (l *Library) Add(ctx context.Context, m domain.Molecule) (domain.Molecule, error) {
	m = m.Trimmed()
	m.ID = 0
	if err := l.check(m); err != nil {
		return domain.Molecule{}, err
	}
	existing, err := l.store.List(ctx)
	if err != nil {
		return domain.Molecule{}, fmt.Errorf("list existing molecules: %w", err)
	}
	key := textnorm.Key(m.Name)
	for _, e := range existing {
		if textnorm.Key(e.Name) == key {
			return domain.Molecule{}, &ValidationError{Issues: []Issue{{
				Field:   domain.FieldName.Label(),
				Message: fmt.Sprintf("molécule déjà présente (%s)", e.Name),
			}}}
		}
	}
	if err := l.store.Append(ctx, m); err != nil {
		return domain.Molecule{}, fmt.Errorf("add molecule %s: %w", m.Name, err)
	}
	slog.Info("Molecule added", "name", m.Name)
	return m, nil
}

// List returns every stored molecule.
func (l *Library) List(ctx context.Context) ([]domain.Molecule, error) {
	return l.store.List(ctx)
}

// ImportReport summarizes a merge.
type ImportReport struct {
	Read       int // rows read from the source
	Added      int // new molecules stored
	Duplicates int // rows whose name was already known
	Skipped    int // rows without a name
}

// Merge returns the incoming molecules that should be appended to existing.
// De-duplication is on the normalized name and keeps the first occurrence:
// existing records win, and within incoming the earlier row wins.
func Merge(existing, incoming []domain.Molecule) ([]domain.Molecule, ImportReport) {
	report := ImportReport{Read: len(incoming)}
	known := make(map[string]bool, len(existing)+len(incoming))
	for _, m := range existing {
		known[textnorm.Key(m.Name)] = true
	}

	var added []domain.Molecule
	for _, m := range incoming {
		m = m.Trimmed()
		m.ID = 0
		if m.Name == "" {
			report.Skipped++
			continue
		}
		key := textnorm.Key(m.Name)
		if known[key] {
			report.Duplicates++
			continue
		}
		known[key] = true
		added = append(added, m)
	}
	report.Added = len(added)
	return added, report
}

// ImportMolecules merges an already-parsed batch into the store.
func (l *Library) ImportMolecules(ctx context.Context, incoming []domain.Molecule) (ImportReport, error) {
	existing, err := l.store.List(ctx)
	if err != nil {
		return ImportReport{}, fmt.Errorf("list existing molecules: %w", err)
	}

	added, report := Merge(existing, incoming)
	for _, m := range added {
		if err := l.check(m); err != nil {
			return ImportReport{}, fmt.Errorf("molecule %s: %w", m.Name, err)
		}
	}
	if err := l.store.Append(ctx, added...); err != nil {
		return ImportReport{}, fmt.Errorf("store imported molecules: %w", err)
	}

	slog.Info("Import merged",
		"read", report.Read,
		"added", report.Added,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped,
	)
	return report, nil
}

// Import parses a whole table before touching the store, so a malformed
// upload leaves the existing records unchanged.
func (l *Library) Import(ctx context.Context, r io.Reader, format tabular.Format) (ImportReport, error) {
	var (
		incoming []domain.Molecule
		err      error
	)
	switch format {
	case tabular.CSV:
		incoming, err = tabular.ReadCSV(r)
	case tabular.XLSX:
		incoming, err = tabular.ReadXLSX(r)
	default:
		err = domain.ErrUnknownFormat
	}
	if err != nil {
		return ImportReport{}, fmt.Errorf("parse import: %w", err)
	}
	return l.ImportMolecules(ctx, incoming)
}

// Export writes the full record set in the import layout.
func (l *Library) Export(ctx context.Context, w io.Writer, format tabular.Format) error {
	molecules, err := l.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list molecules: %w", err)
	}
	switch format {
	case tabular.CSV:
		return tabular.WriteCSV(w, molecules)
	case tabular.XLSX:
		return tabular.WriteXLSX(w, molecules)
	}
	return domain.ErrUnknownFormat
}

// Quiz builds a shuffled question batch of at most n questions. An empty
// store yields no questions and no error.
func (l *Library) Quiz(ctx context.Context, mode quiz.Mode, n int) ([]quiz.Question, error) {
	molecules, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list molecules: %w", err)
	}
	questions, err := quiz.BuildQuestions(molecules, mode)
	if err != nil {
		return nil, err
	}
	return quiz.Take(questions, n), nil
}

// RandomQuestion draws one molecule at random and asks about it. The boolean
// is false when the store is empty.
func (l *Library) RandomQuestion(ctx context.Context, mode quiz.Mode) (quiz.Question, bool, error) {
	m, err := l.store.Random(ctx)
	if err != nil {
		return quiz.Question{}, false, fmt.Errorf("random molecule: %w", err)
	}
	if m == nil {
		return quiz.Question{}, false, nil
	}
	questions, err := quiz.BuildQuestions([]domain.Molecule{*m}, mode)
	if err != nil {
		return quiz.Question{}, false, err
	}
	return questions[0], true, nil
}
