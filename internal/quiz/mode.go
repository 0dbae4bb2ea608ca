package quiz

import (
	"fmt"
	"math/rand/v2"

	"github.com/conorfennell/molcards/internal/domain"
)

// Mode is a prompt/answer orientation.
type Mode string

const (
	ModeNameToGroupRole Mode = "name-group-role"
	ModeGroupToName     Mode = "group-name"
	ModeRoleToName      Mode = "role-name"
	ModeFormulaToInfo   Mode = "formula-details"
)

// Style selects how the user answers a question.
type Style string

const (
	// StyleReveal shows the stored answer block on request.
	StyleReveal Style = "reveal"
	// StyleJudge grades free-text answers field by field.
	StyleJudge Style = "judge"
)

type modeSpec struct {
	label  string
	prompt domain.Field
	reveal []domain.Field
	judged []domain.Field
}

var modes = map[Mode]modeSpec{
	ModeNameToGroupRole: {
		label:  "Nom → Groupe & Rôle",
		prompt: domain.FieldName,
		reveal: []domain.Field{domain.FieldPharmacologicalFamily, domain.FieldRole},
		judged: []domain.Field{domain.FieldPharmacologicalFamily, domain.FieldBrandNames, domain.FieldRole},
	},
	ModeGroupToName: {
		label:  "Groupe → Nom",
		prompt: domain.FieldPharmacologicalFamily,
		reveal: []domain.Field{domain.FieldName},
		judged: []domain.Field{domain.FieldName},
	},
	ModeRoleToName: {
		label:  "Rôle → Nom",
		prompt: domain.FieldRole,
		reveal: []domain.Field{domain.FieldName},
		judged: []domain.Field{domain.FieldName},
	},
	ModeFormulaToInfo: {
		label:  "Formule → Infos",
		prompt: domain.FieldFormula,
		reveal: []domain.Field{domain.FieldName, domain.FieldPharmacologicalFamily, domain.FieldRole},
		judged: []domain.Field{domain.FieldPharmacologicalFamily, domain.FieldBrandNames, domain.FieldRole},
	},
}

// Modes lists the modes in menu order.
func Modes() []Mode {
	return []Mode{ModeNameToGroupRole, ModeGroupToName, ModeRoleToName, ModeFormulaToInfo}
}

// RandomPromptMode picks between asking from the name and asking from the
// formula, each with equal probability.
func RandomPromptMode() Mode {
	if rand.IntN(2) == 0 {
		return ModeNameToGroupRole
	}
	return ModeFormulaToInfo
}

// Styles lists the styles in menu order.
func Styles() []Style {
	return []Style{StyleReveal, StyleJudge}
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := modes[m]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownMode, s)
	}
	return m, nil
}

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	switch st := Style(s); st {
	case StyleReveal, StyleJudge:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownStyle, s)
}

// Label is the menu text for the mode.
func (m Mode) Label() string {
	return modes[m].label
}

// JudgedFields lists the fields a judge-style answer is graded on.
func (m Mode) JudgedFields() []domain.Field {
	return modes[m].judged
}

// Label is the menu text for the style.
func (s Style) Label() string {
	if s == StyleJudge {
		return "Réponse libre corrigée"
	}
	return "Révéler la réponse"
}
