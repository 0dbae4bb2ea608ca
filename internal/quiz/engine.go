package quiz

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/conorfennell/molcards/internal/domain"
	"github.com/conorfennell/molcards/internal/textnorm"
)

// Expectation is one reference value a judged answer is checked against.
type Expectation struct {
	Field domain.Field
	Value string
}

// Question is an ephemeral prompt/answer pair derived from one molecule.
type Question struct {
	RecordID    int64
	RecordName  string
	Mode        Mode
	PromptField domain.Field
	Prompt      string
	Answer      string // reveal-style answer block
	Expected    []Expectation
}

// FieldResult is the outcome of checking one submitted field.
type FieldResult struct {
	Field     domain.Field
	Submitted string
	Reference string
	OK        bool
}

// BuildQuestions maps every record to one question under mode and returns
// them in uniformly random order. An empty record set yields no questions.
func BuildQuestions(records []domain.Molecule, mode Mode) ([]Question, error) {
	def, ok := modes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}

	questions := make([]Question, 0, len(records))
	for _, m := range records {
		questions = append(questions, newQuestion(m, mode, def))
	}

	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	return questions, nil
}

func newQuestion(m domain.Molecule, mode Mode, def modeSpec) Question {
	lines := make([]string, 0, len(def.reveal))
	for _, f := range def.reveal {
		lines = append(lines, fmt.Sprintf("%s : %s", f.Label(), m.Value(f)))
	}

	expected := make([]Expectation, 0, len(def.judged))
	for _, f := range def.judged {
		expected = append(expected, Expectation{Field: f, Value: m.Value(f)})
	}

	return Question{
		RecordID:    m.ID,
		RecordName:  m.Name,
		Mode:        mode,
		PromptField: def.prompt,
		Prompt:      m.Value(def.prompt),
		Answer:      strings.Join(lines, "\n"),
		Expected:    expected,
	}
}

// Take returns the first n questions, or all of them when n is not positive
// or exceeds the number available.
func Take(questions []Question, n int) []Question {
	if n <= 0 || n > len(questions) {
		return questions
	}
	return questions[:n]
}

// JudgeFields checks each submitted field against the record's reference value.
// Results follow domain.Fields order so the output is stable.
func JudgeFields(record domain.Molecule, answers map[domain.Field]string) []FieldResult {
	results := make([]FieldResult, 0, len(answers))
	for _, f := range domain.Fields {
		submitted, ok := answers[f]
		if !ok {
			continue
		}
		reference := record.Value(f)
		results = append(results, FieldResult{
			Field:     f,
			Submitted: submitted,
			Reference: reference,
			OK:        textnorm.Contains(reference, submitted),
		})
	}
	return results
}

// Judge reports whether every submitted field is contained in the reference.
func Judge(record domain.Molecule, answers map[domain.Field]string) bool {
	return allOK(JudgeFields(record, answers))
}

// Check judges answers against the question's expected fields. A missing
// answer counts as an empty submission.
func (q Question) Check(answers map[domain.Field]string) []FieldResult {
	var ref domain.Molecule
	submitted := make(map[domain.Field]string, len(q.Expected))
	for _, e := range q.Expected {
		ref.Set(e.Field, e.Value)
		submitted[e.Field] = answers[e.Field]
	}
	return JudgeFields(ref, submitted)
}

func allOK(results []FieldResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}
