package domain

import "strings"

// Molecule is one entry of the student's personal record set.
type Molecule struct {
	ID                    int64
	Name                  string `validate:"required,max=200"`
	Formula               string `validate:"max=500"`
	PharmacologicalFamily string `validate:"max=500"`
	ChemicalFamily        string `validate:"max=500"`
	BrandNames            string `validate:"max=2000"` // raw comma-separated text
	Role                  string `validate:"max=2000"`
	ImageRef              string `validate:"max=500"`
}

// Field names one attribute of a Molecule.
type Field int

const (
	FieldName Field = iota
	FieldFormula
	FieldPharmacologicalFamily
	FieldChemicalFamily
	FieldBrandNames
	FieldRole
	FieldImage
)

// Fields lists every attribute in column order.
var Fields = []Field{
	FieldName,
	FieldFormula,
	FieldPharmacologicalFamily,
	FieldChemicalFamily,
	FieldBrandNames,
	FieldRole,
	FieldImage,
}

var fieldKeys = map[Field]string{
	FieldName:                  "name",
	FieldFormula:               "formula",
	FieldPharmacologicalFamily: "pharmacological_family",
	FieldChemicalFamily:        "chemical_family",
	FieldBrandNames:            "brand_names",
	FieldRole:                  "role",
	FieldImage:                 "image",
}

var fieldLabels = map[Field]string{
	FieldName:                  "Molécule",
	FieldFormula:               "Formule",
	FieldPharmacologicalFamily: "Groupe",
	FieldChemicalFamily:        "Famille chimique",
	FieldBrandNames:            "Spécialités",
	FieldRole:                  "Rôle",
	FieldImage:                 "Image",
}

// Key is the canonical column name used for import and export.
func (f Field) Key() string {
	return fieldKeys[f]
}

// Label is the French label shown to the user.
func (f Field) Label() string {
	return fieldLabels[f]
}

func (f Field) String() string {
	return f.Key()
}

// Value returns the content of the given field.
func (m Molecule) Value(f Field) string {
	switch f {
	case FieldName:
		return m.Name
	case FieldFormula:
		return m.Formula
	case FieldPharmacologicalFamily:
		return m.PharmacologicalFamily
	case FieldChemicalFamily:
		return m.ChemicalFamily
	case FieldBrandNames:
		return m.BrandNames
	case FieldRole:
		return m.Role
	case FieldImage:
		return m.ImageRef
	}
	return ""
}

// Set assigns the content of the given field.
func (m *Molecule) Set(f Field, v string) {
	switch f {
	case FieldName:
		m.Name = v
	case FieldFormula:
		m.Formula = v
	case FieldPharmacologicalFamily:
		m.PharmacologicalFamily = v
	case FieldChemicalFamily:
		m.ChemicalFamily = v
	case FieldBrandNames:
		m.BrandNames = v
	case FieldRole:
		m.Role = v
	case FieldImage:
		m.ImageRef = v
	}
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (m Molecule) Trimmed() Molecule {
	out := Molecule{ID: m.ID}
	for _, f := range Fields {
		out.Set(f, strings.TrimSpace(m.Value(f)))
	}
	return out
}

// Brands splits the raw brand-name list for display.
func (m Molecule) Brands() []string {
	var brands []string
	for _, b := range strings.Split(m.BrandNames, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brands = append(brands, b)
		}
	}
	return brands
}
