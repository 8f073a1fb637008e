package notes_box

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/2beens/kvnotes/internal/middleware"
	"github.com/2beens/kvnotes/internal/telemetry/metrics"
	"github.com/2beens/kvnotes/internal/telemetry/tracing"
	"github.com/2beens/kvnotes/pkg"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=notes_box_test

type notesRepo interface {
	List(ctx context.Context) ([]Note, error)
	Add(ctx context.Context, text string) (*Note, error)
	Update(ctx context.Context, id, text string) (*Note, error)
	Delete(ctx context.Context, id string) error
}

const maxNoteRequestBytes = 64 << 10

type noteRequest struct {
	Text string `json:"text"`
}

func (req noteRequest) Validate() error {
	return validation.Validate(req.Text, validation.Required.Error("Text is required"))
}

type Handler struct {
	repo    notesRepo
	metrics *metrics.Manager
}

func NewHandler(repo notesRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

// SetupRoutes registers the collection (/notes) and item (/notes/{id}) routes.
// Mutating requests go through the rate limiter when one is given.
func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	mutationsAllowedPerMin int,
) {
	mutation := func(h http.HandlerFunc) http.Handler {
		if rateLimiter == nil || mutationsAllowedPerMin <= 0 {
			return h
		}
		return middleware.RateLimit(rateLimiter, "notes-mutations", mutationsAllowedPerMin, handler.metrics)(h)
	}

	mainRouter.HandleFunc("/notes", handler.HandleList).Methods("GET").Name("list-notes")
	mainRouter.Handle("/notes", mutation(handler.HandleAdd)).Methods("POST").Name("new-note")
	mainRouter.HandleFunc("/notes", handleOptions("GET, POST, OPTIONS")).Methods("OPTIONS")
	mainRouter.Handle("/notes/{id}", mutation(handler.HandleUpdate)).Methods("PUT").Name("update-note")
	mainRouter.Handle("/notes/{id}", mutation(handler.HandleDelete)).Methods("DELETE").Name("remove-note")
	mainRouter.HandleFunc("/notes/{id}", handleOptions("PUT, DELETE, OPTIONS")).Methods("OPTIONS")
}

func handleOptions(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Add("Allow", allow)
		w.WriteHeader(http.StatusOK)
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notes.list")
	defer span.End()

	notes, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("list notes: %s", err)
		span.SetStatus(codes.Error, "list-failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(notes) == 0 {
		notes = []Note{}
	}
	span.SetAttributes(attribute.Int("notes.count", len(notes)))

	pkg.WriteJSONResponse(w, notes, http.StatusOK)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notes.new")
	defer span.End()

	req, ok := readNoteRequest(w, r)
	if !ok {
		span.SetStatus(codes.Error, "bad-request")
		return
	}

	note, err := handler.repo.Add(ctx, req.Text)
	if err != nil {
		log.Errorf("add new note: %s", err)
		span.SetStatus(codes.Error, "add-failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterNotesCreated.Inc()
	span.SetAttributes(attribute.String("note.id", note.ID))

	log.Debugf("new note added: %s", note.ID)
	pkg.WriteJSONResponse(w, note, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notes.update")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("note.id", id))

	req, ok := readNoteRequest(w, r)
	if !ok {
		span.SetStatus(codes.Error, "bad-request")
		return
	}

	note, err := handler.repo.Update(ctx, id, req.Text)
	if errors.Is(err, ErrNoteNotFound) {
		span.SetStatus(codes.Error, "not-found")
		http.Error(w, "Note not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("update note [%s]: %s", id, err)
		span.SetStatus(codes.Error, "update-failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterNotesUpdated.Inc()

	log.Debugf("note updated: %s", note.ID)
	pkg.WriteJSONResponse(w, note, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notes.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("note.id", id))

	err := handler.repo.Delete(ctx, id)
	if errors.Is(err, ErrNoteNotFound) {
		span.SetStatus(codes.Error, "not-found")
		http.Error(w, "Note not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("delete note [%s]: %s", id, err)
		span.SetStatus(codes.Error, "delete-failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterNotesDeleted.Inc()

	log.Debugf("note deleted: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// readNoteRequest decodes and validates the JSON body, writing the error
// response itself when the request is not usable.
func readNoteRequest(w http.ResponseWriter, r *http.Request) (noteRequest, bool) {
	var req noteRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNoteRequestBytes))
	err := decoder.Decode(&req)
	if err == nil {
		// exactly one JSON value
		if _, tokenErr := decoder.Token(); !errors.Is(tokenErr, io.EOF) {
			err = errors.New("trailing data after request body")
		}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return req, false
	}
	if err != nil {
		log.Tracef("note request, unmarshal json body: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}
