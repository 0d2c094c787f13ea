// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry looks up authoritative bibliographic metadata in the
// CrossRef works API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/pkg/types"
)

var (
	// ErrNotFound means the registry has no work for the query.
	ErrNotFound = errors.New("work not found in registry")

	// ErrRegistry wraps transport failures and unexpected responses.
	ErrRegistry = errors.New("registry request failed")
)

// crossrefAPIBase is the works API root. Declared as a var so tests can
// substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org"

const defaultTimeout = 30 * time.Second

// Work is the subset of a registry entry the pipeline uses. Authors are in
// "Last, First" form.
type Work struct {
	DOI      string
	Title    string
	Authors  []string
	Journal  string
	Year     string
	Volume   string
	Issue    string
	Abstract string
	URL      string
}

// Client queries CrossRef.
type Client struct {
	Config types.RegistryConfig
	HTTP   *http.Client
}

// New returns a Client for cfg. A zero timeout gets a 30 s default.
func New(cfg types.RegistryConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{Config: cfg, HTTP: &http.Client{Timeout: timeout}}
}

func (c *Client) base() string {
	if c.Config.BaseURL != "" {
		return strings.TrimRight(c.Config.BaseURL, "/")
	}
	return crossrefAPIBase
}

// LookupDOI fetches the work registered under doi.
func (c *Client) LookupDOI(ctx context.Context, doi string) (*Work, error) {
	doi = types.TrimDOI(doi)
	if doi == "" {
		return nil, fmt.Errorf("%w: empty DOI", ErrNotFound)
	}
	segments := strings.Split(doi, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	var resp struct {
		Message crossrefWork `json:"message"`
	}
	if err := c.get(ctx, c.base()+"/works/"+strings.Join(segments, "/"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Message.work(), nil
}

// Search returns the best bibliographic match for a title, optionally
// narrowed by an author surname.
func (c *Client) Search(ctx context.Context, title, author string) (*Work, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrNotFound)
	}
	q := url.Values{}
	q.Set("query.bibliographic", title)
	if author = strings.TrimSpace(author); author != "" {
		q.Set("query.author", author)
	}
	q.Set("rows", "1")

	var resp struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := c.get(ctx, c.base()+"/works", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Message.Items) == 0 {
		return nil, fmt.Errorf("%w: no match for %q", ErrNotFound, title)
	}
	return resp.Message.Items[0].work(), nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	if c.Config.Mailto != "" {
		q.Set("mailto", c.Config.Mailto)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrRegistry, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := c.userAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, httputil.DefaultMaxRetries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistry, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrRegistry, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parsing response: %v", ErrRegistry, err)
	}
	return nil
}

// userAgent follows the CrossRef polite-pool convention of naming a
// contact address.
func (c *Client) userAgent() string {
	ua := c.Config.UserAgent
	if c.Config.Mailto == "" {
		return ua
	}
	if ua == "" {
		ua = "litreview"
	}
	return ua + " (mailto:" + c.Config.Mailto + ")"
}

// CrossRef API JSON structures.
type crossrefWork struct {
	DOI             string           `json:"DOI"`
	URL             string           `json:"URL"`
	Title           []string         `json:"title"`
	Author          []crossrefAuthor `json:"author"`
	ContainerTitle  []string         `json:"container-title"`
	Volume          string           `json:"volume"`
	Issue           string           `json:"issue"`
	Abstract        string           `json:"abstract"`
	Published       crossrefDate     `json:"published"`
	PublishedPrint  crossrefDate     `json:"published-print"`
	PublishedOnline crossrefDate     `json:"published-online"`
	Issued          crossrefDate     `json:"issued"`
	Created         crossrefDate     `json:"created"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]*int `json:"date-parts"`
}

func (d crossrefDate) year() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == nil {
		return ""
	}
	return strconv.Itoa(*d.DateParts[0][0])
}

func (w crossrefWork) work() *Work {
	out := &Work{
		DOI:      types.TrimDOI(w.DOI),
		URL:      w.URL,
		Volume:   strings.TrimSpace(w.Volume),
		Issue:    strings.TrimSpace(w.Issue),
		Abstract: stripMarkup(w.Abstract),
	}
	if len(w.Title) > 0 {
		out.Title = strings.TrimSpace(w.Title[0])
	}
	if len(w.ContainerTitle) > 0 {
		out.Journal = strings.TrimSpace(w.ContainerTitle[0])
	}
	for _, d := range []crossrefDate{w.Published, w.PublishedPrint, w.PublishedOnline, w.Issued, w.Created} {
		if y := d.year(); y != "" {
			out.Year = y
			break
		}
	}
	for _, a := range w.Author {
		switch {
		case a.Family != "" && a.Given != "":
			out.Authors = append(out.Authors, a.Family+", "+a.Given)
		case a.Family != "":
			out.Authors = append(out.Authors, a.Family)
		case a.Name != "":
			out.Authors = append(out.Authors, a.Name)
		}
	}
	return out
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripMarkup removes the JATS tags CrossRef wraps abstracts in.
func stripMarkup(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
