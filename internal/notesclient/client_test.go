package notesclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2beens/kvnotes/internal/kvstore"
	"github.com/2beens/kvnotes/internal/notes_box"
	"github.com/2beens/kvnotes/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T) *Client {
	t.Helper()

	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := notes_box.NewRepo(kvstore.NewMemoryStore(), notes_box.WithClock(clock.Now))
	r := mux.NewRouter()
	notes_box.NewHandler(repo, metrics.NewTestManager()).SetupRoutes(r, nil, 0)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/", WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("localhost:8080")
	require.Error(t, err)
	_, err = NewClient("ftp://notes.example.com")
	require.Error(t, err)

	c, err := NewClient("https://notes.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://notes.example.com", c.baseURL)
}

func TestClient_CRUD(t *testing.T) {
	client := newTestService(t)
	ctx := context.Background()

	notes, err := client.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	created, err := client.Create(ctx, "buy milk")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "buy milk", created.Text)
	assert.Nil(t, created.UpdatedAt)

	updated, err := client.Update(ctx, created.ID, "buy milk and eggs")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.UpdatedAt)

	notes, err = client.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, *updated, notes[0])

	require.NoError(t, client.Delete(ctx, created.ID))

	err = client.Delete(ctx, created.ID)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "Note not found", statusErr.Message)
}

func TestClient_BadRequest(t *testing.T) {
	client := newTestService(t)

	_, err := client.Create(context.Background(), "")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Text is required", statusErr.Message)
	assert.Equal(t, "notes service: status 400: Text is required", statusErr.Error())
}

func TestClient_EscapesID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	require.NoError(t, client.Delete(context.Background(), "a/b c"))
	assert.Equal(t, "/notes/a%2Fb%20c", gotPath)
}

func TestClient_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client, err := NewClient(server.URL, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	server.Close()

	_, err = client.List(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}
