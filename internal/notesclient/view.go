package notesclient

import (
	"context"
	"sort"
	"strings"

	"github.com/2beens/kvnotes/internal/notes_box"

	log "github.com/sirupsen/logrus"
)

type notesAPI interface {
	List(ctx context.Context) ([]notes_box.Note, error)
	Create(ctx context.Context, text string) (*notes_box.Note, error)
	Update(ctx context.Context, id, text string) (*notes_box.Note, error)
	Delete(ctx context.Context, id string) error
}

// View holds what the notes page shows: the last fetched list, the form input
// and the id of the note being edited (empty when adding). Every mutation is
// followed by a full reload, the list is never patched locally.
// A View is not safe for concurrent use.
type View struct {
	api notesAPI

	Notes     []notes_box.Note
	Input     string
	EditingID string
}

func NewView(api notesAPI) *View {
	return &View{
		api:   api,
		Notes: []notes_box.Note{},
	}
}

func (v *View) Editing() bool {
	return v.EditingID != ""
}

// Load replaces Notes with a fresh list, newest first. On failure the current
// list is kept.
func (v *View) Load(ctx context.Context) error {
	notes, err := v.api.List(ctx)
	if err != nil {
		log.Errorf("failed to fetch notes: %s", err)
		return err
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt.Time)
	})
	v.Notes = notes
	return nil
}

// Submit creates a note from Input, or updates the edited one. Blank input is
// ignored. Input and edit mode are cleared only after the store accepted it.
func (v *View) Submit(ctx context.Context) error {
	if strings.TrimSpace(v.Input) == "" {
		return nil
	}

	var err error
	if v.Editing() {
		_, err = v.api.Update(ctx, v.EditingID, v.Input)
	} else {
		_, err = v.api.Create(ctx, v.Input)
	}
	if err != nil {
		log.Errorf("failed to save note: %s", err)
		return err
	}

	v.Input = ""
	v.EditingID = ""
	return v.Load(ctx)
}

func (v *View) Edit(note notes_box.Note) {
	v.Input = note.Text
	v.EditingID = note.ID
}

func (v *View) CancelEdit() {
	v.Input = ""
	v.EditingID = ""
}

// Delete removes the note and reloads. Confirmation is up to the caller.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.api.Delete(ctx, id); err != nil {
		log.Errorf("failed to delete note: %s", err)
		return err
	}
	return v.Load(ctx)
}
