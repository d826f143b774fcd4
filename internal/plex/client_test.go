package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
	"github.com/edgard/plexdiscordbot/internal/library"
)

const sectionsJSON = `{"MediaContainer":{"size":3,"Directory":[
	{"key":"1","title":"Movies","type":"movie"},
	{"key":"2","title":"TV Shows","type":"show"},
	{"key":"3","title":"Music","type":"artist"}]}}`

const moviesJSON = `{"MediaContainer":{"size":3,"Metadata":[
	{"ratingKey":"101","title":"Inception","year":2010,"addedAt":1700000000},
	{"ratingKey":"102","title":"Baraka","addedAt":1700000100},
	{"ratingKey":"103","title":"  "}]}}`

const showsJSON = `{"MediaContainer":{"size":1,"Metadata":[
	{"ratingKey":"201","title":"Dark","year":2017,"addedAt":1700000200}]}}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Options{
		BaseURL:       server.URL + "/",
		Token:         "secret",
		MoviesSection: "movies",
		TVSection:     "TV Shows",
		Timeout:       5 * time.Second,
	}, nil, nil)
}

func TestFetchReturnsBothSections(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Plex-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/library/sections":
			_, _ = w.Write([]byte(sectionsJSON))
		case "/library/sections/1/all":
			_, _ = w.Write([]byte(moviesJSON))
		case "/library/sections/2/all":
			_, _ = w.Write([]byte(showsJSON))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	catalog, err := client.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, catalog.Movies, 2, "untitled items are skipped")
	inception := catalog.Movies[0]
	assert.Equal(t, "Inception", inception.Title)
	assert.Equal(t, 2010, inception.Year.MustGet())
	assert.Equal(t, library.Movie, inception.Section)
	assert.Equal(t, "101", inception.RatingKey)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), inception.AddedAt)

	baraka := catalog.Movies[1]
	assert.True(t, baraka.Year.IsAbsent())
	assert.Equal(t, "Baraka (Unknown)", baraka.String())

	require.Len(t, catalog.Shows, 1)
	assert.Equal(t, library.Show, catalog.Shows[0].Section)
	assert.Equal(t, 3, catalog.Len())
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		handler      http.HandlerFunc
		wantUnauth   bool
		wantContains string
	}{
		{
			name: "unauthorized token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantUnauth:   true,
			wantContains: "list plex sections",
		},
		{
			name: "missing section",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[{"key":"1","title":"Movies"}]}}`))
			},
			wantContains: `plex library "TV Shows" not found`,
		},
		{
			name: "section listing fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/library/sections" {
					_, _ = w.Write([]byte(sectionsJSON))
					return
				}
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("database locked"))
			},
			wantContains: "database locked",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			wantContains: "decode plex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestServer(t, tt.handler)
			catalog, err := client.Fetch(context.Background())

			require.Error(t, err)
			assert.Zero(t, catalog.Len(), "no partial catalog on failure")
			assert.True(t, apperrors.IsFetch(err))
			assert.Contains(t, err.Error(), tt.wantContains)
			assert.Equal(t, tt.wantUnauth, errors.Is(err, apperrors.ErrUnauthorized))
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(Options{BaseURL: url, Token: "t", MoviesSection: "Movies", TVSection: "TV Shows", Timeout: time.Second}, nil, nil)
	_, err := client.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeFetch, apperrors.Code(err))
}
