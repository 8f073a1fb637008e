package notes_box

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/kvnotes/internal/kvstore"
	"github.com/2beens/kvnotes/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultKeyPrefix = "note:"

var ErrNoteNotFound = errors.New("note not found")

// Repo keeps notes in a key-value store, one serialized note per key.
// Update and delete are plain read-then-write sequences against the store,
// concurrent writers to the same note race and the last write wins.
type Repo struct {
	store     kvstore.Store
	keyPrefix string

	now   func() time.Time
	newID func() string
}

type RepoOption func(*Repo)

func WithKeyPrefix(prefix string) RepoOption {
	return func(r *Repo) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

func WithClock(now func() time.Time) RepoOption {
	return func(r *Repo) {
		r.now = now
	}
}

func WithIDGenerator(newID func() string) RepoOption {
	return func(r *Repo) {
		r.newID = newID
	}
}

func NewRepo(store kvstore.Store, opts ...RepoOption) *Repo {
	r := &Repo{
		store:     store,
		keyPrefix: DefaultKeyPrefix,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repo) NoteKey(id string) string {
	return r.keyPrefix + id
}

func (r *Repo) timestamp() Timestamp {
	return NewTimestamp(r.now())
}

func (r *Repo) List(ctx context.Context) (_ []Note, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.notes.list")
	defer func() { tracing.EndWithError(span, err) }()

	keys, err := r.store.Keys(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list note keys: %w", err)
	}
	// some stores reject an empty multi get
	if len(keys) == 0 {
		return []Note{}, nil
	}

	vals, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("get notes: %w", err)
	}
	span.SetAttributes(attribute.Int("notes.count", len(vals)))

	notes := make([]Note, 0, len(vals))
	for i, val := range vals {
		// deleted between the keys scan and the multi get
		if val == nil {
			continue
		}
		note, err := decodeNote(val)
		if errors.Is(err, errNotNoteObject) {
			log.Warnf("list notes, skipping [%s]: %s", keys[i], err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode note [%s]: %w", keys[i], err)
		}
		notes = append(notes, *note)
	}

	return notes, nil
}

func (r *Repo) Add(ctx context.Context, text string) (_ *Note, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.notes.add")
	defer func() { tracing.EndWithError(span, err) }()

	if text == "" {
		return nil, errors.New("note text empty")
	}

	note := &Note{
		ID:        r.newID(),
		Text:      text,
		CreatedAt: r.timestamp(),
	}
	span.SetAttributes(attribute.String("note.id", note.ID))

	if err := r.put(ctx, note); err != nil {
		return nil, err
	}

	log.Tracef("note stored: %s", note.ID)
	return note, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Note, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.notes.get")
	defer func() { tracing.EndWithError(span, err) }()
	span.SetAttributes(attribute.String("note.id", id))

	return r.get(ctx, id)
}

// Update replaces the note text and stamps updatedAt. The id and the stored
// createdAt text are written back as read.
func (r *Repo) Update(ctx context.Context, id, text string) (_ *Note, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.notes.update")
	defer func() { tracing.EndWithError(span, err) }()
	span.SetAttributes(attribute.String("note.id", id))

	if text == "" {
		return nil, errors.New("note text empty")
	}

	existing, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}

	updatedAt := r.timestamp()
	updated := &Note{
		ID:        existing.ID,
		Text:      text,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: &updatedAt,
	}

	if err := r.put(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.notes.delete")
	defer func() { tracing.EndWithError(span, err) }()
	span.SetAttributes(attribute.String("note.id", id))

	removed, err := r.store.Del(ctx, r.NoteKey(id))
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if removed == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *Repo) get(ctx context.Context, id string) (*Note, error) {
	val, err := r.store.Get(ctx, r.NoteKey(id))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	note, err := decodeNote(val)
	if errors.Is(err, errNilNoteValue) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("decode note: %w", err)
	}
	return note, nil
}

func (r *Repo) put(ctx context.Context, note *Note) error {
	noteJson, err := encodeNote(note)
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}
	if err := r.store.Set(ctx, r.NoteKey(note.ID), noteJson); err != nil {
		return fmt.Errorf("store note: %w", err)
	}
	return nil
}
