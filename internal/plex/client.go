// Package plex reads the movie and TV catalog from a Plex Media Server over
// its HTTP API, authenticating with an X-Plex-Token.
package plex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/mo"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
	"github.com/edgard/plexdiscordbot/internal/library"
)

const userAgent = "plexdiscordbot/1.0"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Token         string
	MoviesSection string
	TVSection     string
	Timeout       time.Duration
}

// Client fetches library sections from Plex.
type Client struct {
	baseURL       string
	token         string
	moviesSection string
	tvSection     string
	http          HTTPDoer
	log           *slog.Logger
}

// NewClient builds a Client. A nil doer gets an http.Client with opts.Timeout.
func NewClient(opts Options, doer HTTPDoer, logger *slog.Logger) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		token:         strings.TrimSpace(opts.Token),
		moviesSection: opts.MoviesSection,
		tvSection:     opts.TVSection,
		http:          doer,
		log:           logger.With("component", "plex"),
	}
}

type directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type metadata struct {
	RatingKey string `json:"ratingKey"`
	Title     string `json:"title"`
	Year      *int   `json:"year"`
	AddedAt   int64  `json:"addedAt"`
}

type mediaContainer struct {
	MediaContainer struct {
		Size      int         `json:"size"`
		Directory []directory `json:"Directory"`
		Metadata  []metadata  `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Fetch returns every item of the configured movie and show sections. It
// either returns both sections in full or a FetchError; partial catalogs are
// never returned.
func (c *Client) Fetch(ctx context.Context) (library.Catalog, error) {
	sections, err := c.sections(ctx)
	if err != nil {
		return library.Catalog{}, apperrors.NewFetchError("list plex sections", err)
	}

	movies, err := c.sectionItems(ctx, sections, c.moviesSection, library.Movie)
	if err != nil {
		return library.Catalog{}, err
	}
	shows, err := c.sectionItems(ctx, sections, c.tvSection, library.Show)
	if err != nil {
		return library.Catalog{}, err
	}

	c.log.DebugContext(ctx, "Fetched plex catalog", "movies", len(movies), "shows", len(shows))
	return library.Catalog{Movies: movies, Shows: shows}, nil
}

func (c *Client) sections(ctx context.Context) (map[string]string, error) {
	var container mediaContainer
	if err := c.getJSON(ctx, "/library/sections", &container); err != nil {
		return nil, err
	}

	sections := make(map[string]string, len(container.MediaContainer.Directory))
	for _, dir := range container.MediaContainer.Directory {
		if dir.Key == "" || dir.Title == "" {
			continue
		}
		sections[strings.ToLower(dir.Title)] = dir.Key
	}
	return sections, nil
}

func (c *Client) sectionItems(ctx context.Context, sections map[string]string, name string, section library.Section) ([]library.Item, error) {
	key, ok := sections[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.NewFetchError(fmt.Sprintf("plex library %q not found", name), nil)
	}

	var container mediaContainer
	if err := c.getJSON(ctx, "/library/sections/"+key+"/all", &container); err != nil {
		return nil, apperrors.NewFetchError(fmt.Sprintf("fetch plex library %q", name), err)
	}

	items := make([]library.Item, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		title := strings.TrimSpace(m.Title)
		if title == "" {
			c.log.WarnContext(ctx, "Skipping untitled plex item", "section", name, "rating_key", m.RatingKey)
			continue
		}
		year := mo.None[int]()
		if m.Year != nil && *m.Year > 0 {
			year = mo.Some(*m.Year)
		}
		var addedAt time.Time
		if m.AddedAt > 0 {
			addedAt = time.Unix(m.AddedAt, 0).UTC()
		}
		items = append(items, library.Item{
			Title:     title,
			Year:      year,
			AddedAt:   addedAt,
			Section:   section,
			RatingKey: m.RatingKey,
		})
	}
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build plex request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("plex %s returned %d: %w", path, resp.StatusCode, apperrors.ErrUnauthorized)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("plex %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decode plex %s: empty body", path)
		}
		return fmt.Errorf("decode plex %s: %w", path, err)
	}
	return nil
}
