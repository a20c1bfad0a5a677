package audit

import "audittrail/internal/entity"

// Kind is the closed set of audit treatments a field can fall into.
type Kind int

const (
	KindSkip Kind = iota
	KindNoValue
	KindScalar
	KindTemporal
	KindEnumerated
	KindReference
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindNoValue:
		return "no_value"
	case KindScalar:
		return "scalar"
	case KindTemporal:
		return "temporal"
	case KindEnumerated:
		return "enumerated"
	case KindReference:
		return "reference"
	case KindStructured:
		return "structured"
	}
	return "unknown"
}

// Granularity refines temporal classifications.
type Granularity int

const (
	GranularityNone Granularity = iota
	GranularityTime
	GranularityDate
	GranularityDatetime
)

// Classification is derived once per field and threaded through detection
// and rendering instead of re-checking field metadata ad hoc.
type Classification struct {
	Kind        Kind
	Granularity Granularity
}

// Classifier decides the audit treatment of a field. A classifier-level skip
// list complements the subject's own exclusion list.
type Classifier struct {
	skipFields map[string]struct{}
}

func NewClassifier(skipFields ...string) *Classifier {
	skip := make(map[string]struct{}, len(skipFields))
	for _, f := range skipFields {
		skip[f] = struct{}{}
	}
	return &Classifier{skipFields: skip}
}

// Classify applies the decision order first-match-wins. The reference and
// enumerated checks must run before the temporal/scalar fallthrough: a
// reference field shares a scalar storage type, and an enumerated field may
// be declared as any scalar type.
func (c *Classifier) Classify(subject Subject, fieldName string) Classification {
	schema := subject.Schema()
	field, ok := schema.Field(fieldName)
	if !ok || fieldName == schema.IDFieldName() || field.NeverPersist {
		return Classification{Kind: KindSkip}
	}
	if _, skip := c.skipFields[fieldName]; skip {
		return Classification{Kind: KindSkip}
	}
	if skipper, ok := subject.(FieldSkipper); ok && skipper.SkipFieldFromAudit(fieldName) {
		return Classification{Kind: KindSkip}
	}
	if field.Secret {
		return Classification{Kind: KindNoValue}
	}
	if field.Ref != "" {
		return Classification{Kind: KindReference}
	}
	if len(field.Values) > 0 {
		return Classification{Kind: KindEnumerated}
	}
	switch field.Type {
	case entity.TypeTime:
		return Classification{Kind: KindTemporal, Granularity: GranularityTime}
	case entity.TypeDate:
		return Classification{Kind: KindTemporal, Granularity: GranularityDate}
	case entity.TypeDatetime:
		return Classification{Kind: KindTemporal, Granularity: GranularityDatetime}
	case entity.TypeJSON:
		return Classification{Kind: KindStructured}
	}
	return Classification{Kind: KindScalar}
}
