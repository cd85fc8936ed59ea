package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.pexels.com/videos"

// Client searches and downloads portrait stock clips from Pexels for b-roll
// injection. All operations are best-effort: callers swallow failures and
// render without b-roll.
type Client struct {
	logger     zerolog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a Client. An empty apiKey disables stock lookup.
func NewClient(logger zerolog.Logger, apiKey string) *Client {
	return &Client{
		logger:     logger.With().Str("component", "stock").Logger(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// Video is one stock search hit.
type Video struct {
	ID       int64
	URL      string
	Duration int
}

type searchResponse struct {
	Videos []struct {
		ID         int64 `json:"id"`
		Duration   int   `json:"duration"`
		VideoFiles []struct {
			Link   string `json:"link"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"video_files"`
	} `json:"videos"`
}

// Search returns up to perPage portrait clips matching query.
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]Video, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("no pexels api key configured")
	}

	endpoint := fmt.Sprintf("%s/search?query=%s&per_page=%d&orientation=portrait",
		c.baseURL, url.QueryEscape(query), perPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stock search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stock search failed: status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse stock response: %w", err)
	}

	var results []Video
	for _, v := range parsed.Videos {
		// Pick the first vertical file.
		for _, f := range v.VideoFiles {
			if f.Width < f.Height {
				results = append(results, Video{ID: v.ID, URL: f.Link, Duration: v.Duration})
				break
			}
		}
	}
	return results, nil
}

// Download fetches one clip into dir and returns its local path.
func (c *Client) Download(ctx context.Context, video Video, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, video.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stock download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stock download failed: status %d", resp.StatusCode)
	}

	outPath := filepath.Join(dir, fmt.Sprintf("broll_%s.mp4", uuid.New().String()))
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("stock download interrupted: %w", err)
	}
	c.logger.Info().Int64("id", video.ID).Str("path", outPath).Msg("b-roll clip downloaded")
	return outPath, nil
}
