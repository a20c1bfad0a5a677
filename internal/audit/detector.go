package audit

import (
	"reflect"
	"sort"
	"time"

	"audittrail/internal/entity"
)

// FieldChange is one audit-worthy change surviving detection, tagged with
// the classification that decides how its values get encoded and rendered.
type FieldChange struct {
	Field string
	Class Classification
	Old   any
	New   any
}

// Detector filters a pre-save dirty snapshot down to real, audit-worthy
// changes. The baseline filter is strict equality: type and value must both
// match for a change to be suppressed.
type Detector struct {
	classifier *Classifier
	// looseStrings enables the historical carve-out treating nil and ""
	// as equal for free-text fields, suppressing audit noise from framework
	// round-tripping of empty inputs. Off by default: later iterations of
	// this system audit any non-strictly-equal pair.
	looseStrings bool
}

func NewDetector(classifier *Classifier, looseStrings bool) *Detector {
	return &Detector{classifier: classifier, looseStrings: looseStrings}
}

// DetectChanges compares each snapshotted prior value against the field's
// current value on the subject. Fields classified as skip are dropped first,
// so excluded fields never cost an equality check. Results are ordered by
// field name to keep record sequences deterministic.
func (d *Detector) DetectChanges(prior map[string]any, subject Subject) []FieldChange {
	fields := make([]string, 0, len(prior))
	for f := range prior {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var changes []FieldChange
	for _, field := range fields {
		class := d.classifier.Classify(subject, field)
		if class.Kind == KindSkip {
			continue
		}
		oldValue := prior[field]
		newValue := subject.Get(field)
		if strictEqual(oldValue, newValue) {
			continue
		}
		if d.looseStrings && d.isFreeText(subject, field) && looseTextEqual(oldValue, newValue) {
			continue
		}
		changes = append(changes, FieldChange{Field: field, Class: class, Old: oldValue, New: newValue})
	}
	return changes
}

func (d *Detector) isFreeText(subject Subject, field string) bool {
	f, ok := subject.Schema().Field(field)
	if !ok {
		return false
	}
	return f.Type == entity.TypeString || f.Type == entity.TypeText || f.Type == ""
}

func strictEqual(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// looseTextEqual treats nil and the empty string as the same value.
func looseTextEqual(a, b any) bool {
	as, aok := asText(a)
	bs, bok := asText(b)
	return aok && bok && as == bs
}

func asText(v any) (string, bool) {
	if v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}
