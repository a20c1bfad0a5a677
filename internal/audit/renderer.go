package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"audittrail/internal/entity"
)

// TitleSource loads the display title of a referenced row, restricted to an
// id+title projection. Implementations return an error (conventionally
// wrapping sentinel.ErrNotFound) when the row no longer exists; the renderer
// treats any failure as a resolution miss and falls back to the raw id.
type TitleSource interface {
	LookupTitle(ctx context.Context, model, id string) (string, error)
}

// Templates are the named message patterns. Placeholder substitution is
// literal text replacement: substituted values are not escaped and never
// re-templated.
type Templates struct {
	Changed        string
	Set            string
	ChangedNoValue string
	Created        string
	Deleted        string
}

func DefaultTemplates() Templates {
	return Templates{
		Changed:        `changed "{fieldName}" from "{oldValue}" to "{newValue}"`,
		Set:            `set "{fieldName}" to "{newValue}"`,
		ChangedNoValue: `changed "{fieldName}"`,
		Created:        `created {modelCaption}`,
		Deleted:        `deleted {modelCaption}`,
	}
}

// Renderer converts a persisted record's change payload into final text.
// Rendering is idempotent: re-rendering the same record yields the same
// string as long as referenced titles and value tables are unchanged. It
// never raises for missing referenced data — deleted rows and mutated
// enumerations are expected over the lifetime of audit history.
type Renderer struct {
	titles     TitleSource
	classifier *Classifier
	templates  Templates

	TimeFormat     string
	DateFormat     string
	DateTimeFormat string
}

func NewRenderer(titles TitleSource, classifier *Classifier) *Renderer {
	return &Renderer{
		titles:         titles,
		classifier:     classifier,
		templates:      DefaultTemplates(),
		TimeFormat:     "15:04",
		DateFormat:     "2006-01-02",
		DateTimeFormat: "2006-01-02 15:04",
	}
}

// SetTemplates overrides the default message patterns.
func (r *Renderer) SetTemplates(t Templates) { r.templates = t }

// Render dispatches on the record's event type. Field changes re-derive the
// field's classification from current metadata rather than trusting what was
// stored, so reference and enumeration treatment follows schema evolution.
func (r *Renderer) Render(ctx context.Context, rec *Record, subject Subject) string {
	switch rec.Type {
	case TypeCreated:
		return renderTemplate(r.templates.Created, map[string]string{
			"modelCaption": subject.Schema().DisplayCaption(),
		})
	case TypeDeleted:
		return renderTemplate(r.templates.Deleted, map[string]string{
			"modelCaption": subject.Schema().DisplayCaption(),
		})
	case TypeFieldChanged:
		return r.renderFieldChange(ctx, rec, subject)
	default:
		return r.renderCustom(rec)
	}
}

func (r *Renderer) renderFieldChange(ctx context.Context, rec *Record, subject Subject) string {
	caption := fieldCaption(subject.Schema(), rec.FieldIdent)
	class := r.classifier.Classify(subject, rec.FieldIdent)

	if class.Kind == KindNoValue {
		return renderTemplate(r.templates.ChangedNoValue, map[string]string{"fieldName": caption})
	}
	if rec.Delta == nil {
		return renderTemplate(r.templates.ChangedNoValue, map[string]string{"fieldName": caption})
	}

	// Fields dropped from the schema since the record was written classify
	// as skip; fall back to the field type stored with the delta.
	if class.Kind == KindSkip {
		class = classFromStoredType(rec.Delta.FieldType)
	}

	switch class.Kind {
	case KindReference:
		return r.renderReference(ctx, rec, subject, caption)
	case KindEnumerated:
		return r.renderEnumerated(rec, subject, caption)
	case KindTemporal:
		return r.renderTemporal(rec, caption, class.Granularity)
	case KindStructured:
		return r.renderStructured(rec, caption)
	default:
		return r.renderScalar(rec, caption)
	}
}

func (r *Renderer) renderScalar(rec *Record, caption string) string {
	oldValue := stringify(rec.Delta.OldValue)
	newValue := stringify(rec.Delta.NewValue)
	return r.changedOrSet(caption, oldValue, newValue)
}

func (r *Renderer) renderStructured(rec *Record, caption string) string {
	oldValue := jsonify(rec.Delta.OldValue)
	newValue := jsonify(rec.Delta.NewValue)
	return r.changedOrSet(caption, oldValue, newValue)
}

func (r *Renderer) renderTemporal(rec *Record, caption string, g Granularity) string {
	format := r.DateTimeFormat
	switch g {
	case GranularityTime:
		format = r.TimeFormat
	case GranularityDate:
		format = r.DateFormat
	}

	newValue := stringify(rec.Delta.NewValue)
	if parsed, err := time.Parse(time.RFC3339, newValue); err == nil {
		newValue = parsed.Format(format)
	}
	oldRaw := stringify(rec.Delta.OldValue)
	parsedOld, err := time.Parse(time.RFC3339, oldRaw)
	if err != nil {
		// Old value never set or unparseable: the change reads as a set.
		return renderTemplate(r.templates.Set, map[string]string{
			"fieldName": caption,
			"newValue":  newValue,
		})
	}
	return renderTemplate(r.templates.Changed, map[string]string{
		"fieldName": caption,
		"oldValue":  parsedOld.Format(format),
		"newValue":  newValue,
	})
}

func (r *Renderer) renderEnumerated(rec *Record, subject Subject, caption string) string {
	var values map[string]string
	if field, ok := subject.Schema().Field(rec.FieldIdent); ok {
		values = field.Values
	}
	oldKey := stringify(rec.Delta.OldValue)
	newKey := stringify(rec.Delta.NewValue)
	// Labels resolve against the current table; absent keys render empty
	// rather than failing.
	oldLabel := values[oldKey]
	newLabel := values[newKey]
	if oldKey == "" {
		return renderTemplate(r.templates.Set, map[string]string{
			"fieldName": caption,
			"newValue":  newLabel,
		})
	}
	return renderTemplate(r.templates.Changed, map[string]string{
		"fieldName": caption,
		"oldValue":  oldLabel,
		"newValue":  newLabel,
	})
}

func (r *Renderer) renderReference(ctx context.Context, rec *Record, subject Subject, caption string) string {
	refModel := ""
	if field, ok := subject.Schema().Field(rec.FieldIdent); ok {
		refModel = field.Ref
	}
	oldValue := r.resolveTitle(ctx, refModel, rec.Delta.OldValue)
	newValue := r.resolveTitle(ctx, refModel, rec.Delta.NewValue)
	if stringify(rec.Delta.OldValue) == "" {
		return renderTemplate(r.templates.Set, map[string]string{
			"fieldName": caption,
			"newValue":  newValue,
		})
	}
	return renderTemplate(r.templates.Changed, map[string]string{
		"fieldName": caption,
		"oldValue":  oldValue,
		"newValue":  newValue,
	})
}

// resolveTitle loads the referenced row's title, degrading to the raw stored
// id when the row is gone or no title source is wired.
func (r *Renderer) resolveTitle(ctx context.Context, refModel string, rawID any) string {
	id := stringify(rawID)
	if id == "" || refModel == "" || r.titles == nil {
		return id
	}
	title, err := r.titles.LookupTitle(ctx, refModel, id)
	if err != nil {
		return id
	}
	return title
}

func (r *Renderer) renderCustom(rec *Record) string {
	if len(rec.Data) == 0 {
		return string(rec.Type)
	}
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return string(rec.Type)
	}
	return string(rec.Type) + " " + string(payload)
}

func (r *Renderer) changedOrSet(caption, oldValue, newValue string) string {
	if oldValue == "" {
		return renderTemplate(r.templates.Set, map[string]string{
			"fieldName": caption,
			"newValue":  newValue,
		})
	}
	return renderTemplate(r.templates.Changed, map[string]string{
		"fieldName": caption,
		"oldValue":  oldValue,
		"newValue":  newValue,
	})
}

func renderTemplate(template string, replacements map[string]string) string {
	// Single-pass replacement: substituted values are never re-scanned, so a
	// value that happens to look like a placeholder stays literal.
	pairs := make([]string, 0, len(replacements)*2)
	for placeholder, value := range replacements {
		pairs = append(pairs, "{"+placeholder+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func fieldCaption(schema *entity.Schema, ident string) string {
	if field, ok := schema.Field(ident); ok {
		return field.DisplayCaption()
	}
	return entity.Field{Name: ident}.DisplayCaption()
}

func classFromStoredType(fieldType string) Classification {
	switch entity.FieldType(fieldType) {
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

// stringify renders a stored value as display text. JSON round-tripping
// turns numbers into float64, so formatting has to stay stable across both
// in-process and reloaded records.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func jsonify(v any) string {
	if v == nil {
		return ""
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return stringify(v)
	}
	return string(encoded)
}
