//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/2beens/kvnotes/internal/notes_box"
	"github.com/2beens/kvnotes/internal/notesclient"
)

func (s *IntegrationTestSuite) TestNotes_Lifecycle() {
	ctx := context.Background()

	notes, err := s.notesClient.List(ctx)
	s.Require().NoError(err)
	s.Empty(notes)

	created, err := s.notesClient.Create(ctx, "buy milk")
	s.Require().NoError(err)
	s.NotEmpty(created.ID)

	// stored as a JSON string under the prefixed key
	raw, err := s.redisClient.Get(ctx, "note:"+created.ID).Result()
	s.Require().NoError(err)
	var stored notes_box.Note
	s.Require().NoError(json.Unmarshal([]byte(raw), &stored))
	s.Equal(*created, stored)

	updated, err := s.notesClient.Update(ctx, created.ID, "buy milk and eggs")
	s.Require().NoError(err)
	s.Equal(created.CreatedAt, updated.CreatedAt)
	s.Require().NotNil(updated.UpdatedAt)

	notes, err = s.notesClient.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(notes, 1)
	s.Equal("buy milk and eggs", notes[0].Text)

	s.Require().NoError(s.notesClient.Delete(ctx, created.ID))

	notes, err = s.notesClient.List(ctx)
	s.Require().NoError(err)
	s.Empty(notes)

	err = s.notesClient.Delete(ctx, created.ID)
	var statusErr *notesclient.StatusError
	s.Require().ErrorAs(err, &statusErr)
	s.Equal(http.StatusNotFound, statusErr.StatusCode)
}

func (s *IntegrationTestSuite) TestNotes_ForeignKeysIgnored() {
	ctx := context.Background()
	s.Require().NoError(s.redisClient.Set(ctx, "session:abc", "x", 0).Err())

	notes, err := s.notesClient.List(ctx)
	s.Require().NoError(err)
	s.Empty(notes)
}

func (s *IntegrationTestSuite) TestNotes_Page() {
	resp, err := s.httpClient.Get(serverEndpoint + "/")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
}

func (s *IntegrationTestSuite) TestNotes_UnknownPath() {
	resp, err := s.httpClient.Get(serverEndpoint + "/nope")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

// limiter state lives in the same redis db, SetupTest resets the budget
func (s *IntegrationTestSuite) TestNotes_RateLimited() {
	ctx := context.Background()

	var limited bool
	for i := 0; i < 10; i++ {
		_, err := s.notesClient.Create(ctx, "spam")
		var statusErr *notesclient.StatusError
		if err != nil && s.ErrorAs(err, &statusErr) {
			s.Equal(http.StatusTooManyRequests, statusErr.StatusCode)
			limited = true
			break
		}
	}
	s.True(limited, "expected mutations to be rate limited")
}
