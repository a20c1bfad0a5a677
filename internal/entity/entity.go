// Package entity provides the field metadata surface the audit core consumes.
// It deliberately stays small: schemas describe fields and their audit-relevant
// attributes, models carry values plus dirty tracking, and the store gives
// tests and the demo server a persistence backend with title projections.
package entity

import "strings"

// FieldType is the declared persistence type of a field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeText     FieldType = "text"
	TypeInteger  FieldType = "integer"
	TypeFloat    FieldType = "float"
	TypeBool     FieldType = "bool"
	TypeMoney    FieldType = "money"
	TypeTime     FieldType = "time"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
	TypeJSON     FieldType = "json"
)

// Field describes one column of a schema.
//
// Values being non-empty marks the field as enumerated (raw key -> display
// label). Ref naming another schema marks it as a has-one reference; the raw
// foreign-key id is what gets stored. Secret fields are audited without
// values (password-style fields).
type Field struct {
	Name         string
	Type         FieldType
	Caption      string
	NeverPersist bool
	Secret       bool
	Values       map[string]string
	Ref          string
}

// DisplayCaption returns the configured caption, or one derived from the
// field name ("due_date" -> "Due Date").
func (f Field) DisplayCaption() string {
	if f.Caption != "" {
		return f.Caption
	}
	return captionFromName(f.Name)
}

// Schema is the metadata for one model type.
type Schema struct {
	// Name identifies the model type, e.g. "invoice". Stored on every audit
	// record so history stays resolvable after schema evolution.
	Name string
	// Caption is the display name used in created/deleted messages.
	Caption string
	// IDField names the primary identifier; defaults to "id".
	IDField string
	// TitleField names the field used when this model is the target of a
	// reference lookup; defaults to "name".
	TitleField string
	Fields     []Field
}

// Field returns the definition for name, reporting whether it exists.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) HasField(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// IDFieldName returns the primary identifier field name.
func (s *Schema) IDFieldName() string {
	if s.IDField == "" {
		return "id"
	}
	return s.IDField
}

// TitleFieldName returns the field used for display titles.
func (s *Schema) TitleFieldName() string {
	if s.TitleField == "" {
		return "name"
	}
	return s.TitleField
}

// DisplayCaption returns the configured caption, or one derived from Name.
func (s *Schema) DisplayCaption() string {
	if s.Caption != "" {
		return s.Caption
	}
	return captionFromName(s.Name)
}

func captionFromName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
