package gdstudio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/providers/common"
)

const (
	DefaultBaseURL   = "https://music-api.gdstudio.xyz/api.php"
	defaultUserAgent = "otter-music-search/1.0"
	maxBodyBytes     = 4 << 20
)

var ErrNoBaseURL = errors.New("no music api base url configured")

// StatusError is a non-2xx answer from the music API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("music api HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("music api HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Config struct {
	BaseURLs  []string
	UserAgent string
	Cookies   map[domain.Source]string
	Client    *http.Client
}

// Client talks to a gdstudio-compatible music API. Several base URLs can be
// configured; each request starts at a random one and falls through the rest.
type Client struct {
	http      *http.Client
	baseURLs  []string
	userAgent string
	cookies   map[domain.Source]string
	pick      func(n int) int
}

func NewClient(cfg Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	cookies := make(map[domain.Source]string, len(cfg.Cookies))
	for source, cookie := range cfg.Cookies {
		if cookie = strings.TrimSpace(cookie); cookie != "" {
			cookies[domain.NormalizeSource(string(source))] = cookie
		}
	}
	return &Client{
		http:      client,
		baseURLs:  parseBaseURLs(cfg.BaseURLs),
		userAgent: userAgent,
		cookies:   cookies,
		pick:      rand.IntN,
	}
}

func (c *Client) BaseURLs() []string {
	return append([]string(nil), c.baseURLs...)
}

// SearchTracks returns one page of validated tracks and the number of
// records the API returned before validation.
func (c *Client) SearchTracks(ctx context.Context, source domain.Source, query string, page, count int) ([]domain.Track, int, error) {
	params := url.Values{}
	params.Set("types", "search")
	params.Set("name", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("pages", strconv.Itoa(page))

	body, err := c.get(ctx, source, params)
	if err != nil {
		return nil, 0, err
	}
	tracks, skipped, err := common.DecodeTracks(body, source)
	if err != nil {
		return nil, 0, err
	}
	return tracks, len(tracks) + skipped, nil
}

type urlPayload struct {
	URL  string            `json:"url"`
	BR   common.FlexString `json:"br"`
	Size common.FlexString `json:"size"`
}

// URL resolves a playable stream. An empty URL means the API has none.
func (c *Client) URL(ctx context.Context, source domain.Source, id string, br int) (domain.SongURL, error) {
	if br <= 0 {
		br = domain.DefaultBitrate
	}
	params := url.Values{}
	params.Set("types", "url")
	params.Set("id", id)
	params.Set("br", strconv.Itoa(br))

	var payload urlPayload
	if err := c.getJSON(ctx, source, params, &payload); err != nil {
		return domain.SongURL{}, err
	}
	result := domain.SongURL{URL: strings.TrimSpace(payload.URL)}
	if value, err := strconv.ParseFloat(string(payload.BR), 64); err == nil {
		result.BR = int(value)
	}
	if value, err := strconv.ParseInt(string(payload.Size), 10, 64); err == nil {
		result.Size = value
	}
	return result, nil
}

func (c *Client) Picture(ctx context.Context, source domain.Source, id string, size int) (domain.Picture, error) {
	if size <= 0 {
		size = domain.DefaultPictureSize
	}
	params := url.Values{}
	params.Set("types", "pic")
	params.Set("id", id)
	params.Set("size", strconv.Itoa(size))

	var payload struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, source, params, &payload); err != nil {
		return domain.Picture{}, err
	}
	return domain.Picture{URL: strings.TrimSpace(payload.URL)}, nil
}

func (c *Client) Lyric(ctx context.Context, source domain.Source, id string) (domain.Lyric, error) {
	params := url.Values{}
	params.Set("types", "lyric")
	params.Set("id", id)

	var payload struct {
		Lyric  string `json:"lyric"`
		TLyric string `json:"tlyric"`
	}
	if err := c.getJSON(ctx, source, params, &payload); err != nil {
		return domain.Lyric{}, err
	}
	return domain.Lyric{Lyric: payload.Lyric, TLyric: payload.TLyric}, nil
}

func (c *Client) getJSON(ctx context.Context, source domain.Source, params url.Values, out any) error {
	body, err := c.get(ctx, source, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", params.Get("types"), err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, source domain.Source, params url.Values) ([]byte, error) {
	if len(c.baseURLs) == 0 {
		return nil, ErrNoBaseURL
	}
	params.Set("source", string(source))
	if cookie := c.cookies[source]; cookie != "" {
		params.Set("cookie", cookie)
	}

	start := c.pick(len(c.baseURLs))
	var lastErr error
	for i := range c.baseURLs {
		base := c.baseURLs[(start+i)%len(c.baseURLs)]
		body, err := c.fetch(ctx, base, params)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, base string, params url.Values) ([]byte, error) {
	endpoint, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", base, err)
	}
	query := endpoint.Query()
	for key, values := range params {
		query[key] = values
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: common.Snippet(string(body), 160)}
	}
	return body, nil
}

func parseBaseURLs(raw []string) []string {
	items := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, part := range raw {
		base := strings.TrimSpace(part)
		if base == "" {
			continue
		}
		if _, exists := seen[base]; exists {
			continue
		}
		seen[base] = struct{}{}
		items = append(items, base)
	}
	if len(items) == 0 {
		return []string{DefaultBaseURL}
	}
	return items
}
