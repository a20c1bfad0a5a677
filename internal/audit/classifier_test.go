package audit

import (
	"testing"

	"audittrail/internal/entity"
)

func invoiceSchema() *entity.Schema {
	return &entity.Schema{
		Name: "invoice",
		Fields: []entity.Field{
			{Name: "name", Type: entity.TypeString},
			{Name: "notes", Type: entity.TypeText},
			{Name: "amount", Type: entity.TypeMoney},
			{Name: "paid", Type: entity.TypeBool},
			{Name: "cached_total", Type: entity.TypeFloat, NeverPersist: true},
			{Name: "api_token", Type: entity.TypeString, Secret: true},
			{Name: "client_id", Type: entity.TypeInteger, Ref: "client"},
			{Name: "status", Type: entity.TypeString, Values: map[string]string{
				"draft": "Draft",
				"sent":  "Sent",
				"paid":  "Paid",
			}},
			{Name: "reminder_at", Type: entity.TypeTime},
			{Name: "due_date", Type: entity.TypeDate},
			{Name: "sent_at", Type: entity.TypeDatetime},
			{Name: "line_items", Type: entity.TypeJSON},
			// Reference wins over the enumeration and the temporal type.
			{Name: "template_id", Type: entity.TypeDate, Ref: "template", Values: map[string]string{"x": "X"}},
			{Name: "priority", Type: entity.TypeDatetime, Values: map[string]string{"1": "Low", "2": "High"}},
		},
	}
}

func TestClassify(t *testing.T) {
	subject := entity.NewModel(invoiceSchema())
	subject.SkipAuditFields("notes")
	classifier := NewClassifier("amount")

	tests := []struct {
		field string
		want  Classification
	}{
		{"missing_field", Classification{Kind: KindSkip}},
		{"id", Classification{Kind: KindSkip}},
		{"cached_total", Classification{Kind: KindSkip}},
		{"amount", Classification{Kind: KindSkip}},
		{"notes", Classification{Kind: KindSkip}},
		{"api_token", Classification{Kind: KindNoValue}},
		{"client_id", Classification{Kind: KindReference}},
		{"template_id", Classification{Kind: KindReference}},
		{"status", Classification{Kind: KindEnumerated}},
		{"priority", Classification{Kind: KindEnumerated}},
		{"reminder_at", Classification{Kind: KindTemporal, Granularity: GranularityTime}},
		{"due_date", Classification{Kind: KindTemporal, Granularity: GranularityDate}},
		{"sent_at", Classification{Kind: KindTemporal, Granularity: GranularityDatetime}},
		{"line_items", Classification{Kind: KindStructured}},
		{"name", Classification{Kind: KindScalar}},
		{"paid", Classification{Kind: KindScalar}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got := classifier.Classify(subject, tt.field)
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.field, got, tt.want)
			}
		})
	}
}

func TestClassifySkipWinsOverSecret(t *testing.T) {
	schema := &entity.Schema{
		Name:   "account",
		Fields: []entity.Field{{Name: "password", Type: entity.TypeString, Secret: true}},
	}
	subject := entity.NewModel(schema)
	subject.SkipAuditFields("password")

	got := NewClassifier().Classify(subject, "password")
	if got.Kind != KindSkip {
		t.Errorf("skip list must win over secret treatment, got %v", got.Kind)
	}
}

func TestKindString(t *testing.T) {
	if KindReference.String() != "reference" || KindSkip.String() != "skip" {
		t.Error("Kind.String() mismatch")
	}
	if Kind(99).String() != "unknown" {
		t.Error("out-of-range kind should stringify as unknown")
	}
}
