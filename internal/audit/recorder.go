package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"audittrail/internal/actor"
	"audittrail/internal/audit/metrics"
)

// Link-change verbs for many-to-many audit entries.
const (
	LinkAdded   = "added"
	LinkRemoved = "removed"
)

// Config is injected at construction and read once per recorder call; there
// are no ambient switches. Disabled suppresses every operation before any
// detection or persistence work runs.
type Config struct {
	Disabled bool
	// LooseStringCompare treats nil and "" as equal for free-text fields.
	LooseStringCompare bool
	// SkipFields is a recorder-wide exclusion list, complementing each
	// subject's own.
	SkipFields []string
}

// Recorder turns detected changes and lifecycle events into persisted
// records. All work happens synchronously within the triggering call.
type Recorder struct {
	store      Store
	classifier *Classifier
	detector   *Detector
	renderer   *Renderer
	cfg        Config
	clock      func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sink       chan<- Record
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) { r.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithSink attaches a channel that receives every written record, e.g. for
// the Kafka forwarder. Emission is non-blocking; a full sink drops the
// record from the stream, never from the store.
func WithSink(sink chan<- Record) Option {
	return func(r *Recorder) { r.sink = sink }
}

func NewRecorder(store Store, titles TitleSource, cfg Config, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	classifier := NewClassifier(cfg.SkipFields...)
	r := &Recorder{
		store:      store,
		classifier: classifier,
		detector:   NewDetector(classifier, cfg.LooseStringCompare),
		renderer:   NewRenderer(titles, classifier),
		cfg:        cfg,
		clock:      time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Renderer exposes the recorder's message renderer, e.g. to override
// templates before any records are written.
func (r *Recorder) Renderer() *Renderer { return r.renderer }

// SnapshotBeforeWrite is phase one of the two-phase integration contract:
// call it immediately before persisting the subject, keep the returned
// snapshot, then call RecordAfterWrite once the write succeeded.
func (r *Recorder) SnapshotBeforeWrite(source DirtySource) map[string]any {
	return source.SnapshotBeforeWrite()
}

// RecordAfterWrite is phase two: records a created event for inserts, then
// one field_changed record per surviving change from the snapshot.
func (r *Recorder) RecordAfterWrite(ctx context.Context, subject Subject, snapshot map[string]any, wasUpdate bool) error {
	if !wasUpdate {
		if _, err := r.RecordCreated(ctx, subject); err != nil {
			return err
		}
	}
	_, err := r.RecordFieldChanges(ctx, subject, snapshot)
	return err
}

// RecordAfterDelete records the deletion event. The subject must still be
// readable (its values survive the delete in memory).
func (r *Recorder) RecordAfterDelete(ctx context.Context, subject Subject) error {
	_, err := r.RecordDeleted(ctx, subject)
	return err
}

// RecordCreated writes one created record, unconditionally unless suppressed.
func (r *Recorder) RecordCreated(ctx context.Context, subject Subject) (*Record, error) {
	if r.suppressed(subject) {
		return nil, nil
	}
	rec := r.newRecord(ctx, subject, TypeCreated)
	rec.RenderedMessage = r.renderer.Render(ctx, rec, subject)
	if err := r.append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordDeleted writes one deleted record.
func (r *Recorder) RecordDeleted(ctx context.Context, subject Subject) (*Record, error) {
	if r.suppressed(subject) {
		return nil, nil
	}
	rec := r.newRecord(ctx, subject, TypeDeleted)
	rec.RenderedMessage = r.renderer.Render(ctx, rec, subject)
	if err := r.append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordFieldChanges runs detection over the pre-save snapshot and writes
// one record per changed field.
func (r *Recorder) RecordFieldChanges(ctx context.Context, subject Subject, snapshot map[string]any) ([]Record, error) {
	if r.suppressed(subject) {
		return nil, nil
	}
	changes := r.detector.DetectChanges(snapshot, subject)
	records := make([]Record, 0, len(changes))
	for _, change := range changes {
		rec := r.newRecord(ctx, subject, TypeFieldChanged)
		rec.FieldIdent = change.Field
		rec.Delta = r.encodeDelta(subject, change)
		rec.RenderedMessage = r.renderer.Render(ctx, rec, subject)
		if err := r.append(ctx, rec); err != nil {
			return records, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// RecordCustomEvent writes a record with a caller-defined event name and an
// open payload, for changes the field model doesn't cover. Reusing a
// lifecycle event name is a caller bug.
func (r *Recorder) RecordCustomEvent(ctx context.Context, subject Subject, event string, data map[string]any) (*Record, error) {
	if EventType(event).IsLifecycle() {
		return nil, fmt.Errorf("custom audit event %q collides with a lifecycle event", event)
	}
	if event == "" {
		return nil, fmt.Errorf("custom audit event name is required")
	}
	if r.suppressed(subject) {
		return nil, nil
	}
	rec := r.newRecord(ctx, subject, EventType(event))
	rec.Data = data
	rec.RenderedMessage = r.renderer.Render(ctx, rec, subject)
	if err := r.append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordLinkChange audits adding or removing a many-to-many link. The event
// name combines the verb with the linked model's type, and the payload keeps
// id, title and model so the entry stays readable after the link target is
// gone.
func (r *Recorder) RecordLinkChange(ctx context.Context, subject Subject, verb string, linked Subject) (*Record, error) {
	schema := linked.Schema()
	title := stringify(linked.Get(schema.TitleFieldName()))
	return r.RecordCustomEvent(ctx, subject, verb+"_"+schema.Name, map[string]any{
		"id":    linked.ID(),
		"title": title,
		"model": schema.Name,
	})
}

// RecordSatelliteChange audits an add/remove/change of a satellite model's
// designated field. Nothing is written when the satellite carries neither a
// value nor a change.
func (r *Recorder) RecordSatelliteChange(ctx context.Context, subject Subject, verb string, sat Satellite) (*Record, error) {
	current := sat.Current()
	prior, changed := sat.Prior()
	if stringify(current) == "" && !changed {
		return nil, nil
	}
	oldValue := any("")
	if changed {
		oldValue = prior
	}
	return r.RecordCustomEvent(ctx, subject, verb+"_"+sat.Schema().Name, map[string]any{
		"old_value": oldValue,
		"new_value": current,
	})
}

// Backfill re-renders a persisted record against current metadata and stores
// the result, for records written before a template or mapping change.
func (r *Recorder) Backfill(ctx context.Context, rec *Record, subject Subject) (string, error) {
	message := r.renderer.Render(ctx, rec, subject)
	if err := r.store.UpdateRenderedMessage(ctx, rec.ID, message); err != nil {
		return "", fmt.Errorf("backfill rendered message: %w", err)
	}
	rec.RenderedMessage = message
	return message, nil
}

func (r *Recorder) suppressed(subject Subject) bool {
	if r.cfg.Disabled {
		r.countSuppressed()
		return true
	}
	if s, ok := subject.(Suppressor); ok && s.NoAudit() {
		r.countSuppressed()
		return true
	}
	return false
}

func (r *Recorder) countSuppressed() {
	if r.metrics != nil {
		r.metrics.RecordsSuppressed.Inc()
	}
}

func (r *Recorder) newRecord(ctx context.Context, subject Subject, eventType EventType) *Record {
	rec := &Record{
		ID:           uuid.New(),
		SubjectModel: subject.Schema().Name,
		SubjectID:    subject.ID(),
		Type:         eventType,
		CreatedAt:    r.clock(),
	}
	if a, ok := actor.FromContext(ctx); ok {
		rec.ActorID = a.ID
		rec.ActorName = a.Name
	}
	return rec
}

// encodeDelta applies the per-classification value encoding. Secret fields
// record that a change happened and nothing else.
func (r *Recorder) encodeDelta(subject Subject, change FieldChange) *FieldDelta {
	fieldType := ""
	if field, ok := subject.Schema().Field(change.Field); ok {
		fieldType = string(field.Type)
	}
	delta := &FieldDelta{FieldType: fieldType}
	switch change.Class.Kind {
	case KindNoValue:
		return delta
	case KindTemporal:
		delta.OldValue = encodeTemporal(change.Old)
		delta.NewValue = encodeTemporal(change.New)
	default:
		delta.OldValue = change.Old
		delta.NewValue = change.New
	}
	return delta
}

// encodeTemporal stores temporal values as timezone-aware RFC3339 text
// regardless of declared granularity; truncation happens at render time.
func encodeTemporal(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t.Format(time.RFC3339)
	case string:
		return t
	default:
		return nil
	}
}

func (r *Recorder) append(ctx context.Context, rec *Record) error {
	if err := r.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	r.logger.DebugContext(ctx, "audit record written",
		"event_type", string(rec.Type),
		"subject_model", rec.SubjectModel,
		"subject_id", rec.SubjectID,
		"field", rec.FieldIdent,
	)
	if r.metrics != nil {
		r.metrics.RecordsWritten.WithLabelValues(string(rec.Type)).Inc()
	}
	if r.sink != nil {
		select {
		case r.sink <- *rec:
		default:
			if r.metrics != nil {
				r.metrics.SinkDropped.Inc()
			}
			r.logger.WarnContext(ctx, "audit sink full, record not forwarded", "record_id", rec.ID)
		}
	}
	return nil
}
