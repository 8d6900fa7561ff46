package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrResolution is reported when every metadata lookup path has failed.
var ErrResolution = errors.New("metadata resolution failed")

// Resolver looks up metadata for a source URL.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*VideoInfo, error)
}

// ytdlpResolver shells out to yt-dlp and falls back to the YouTube Data API
// when yt-dlp is unavailable or blocked.
type ytdlpResolver struct {
	logger  *slog.Logger
	apiKey  string
	apiBase string
	client  *http.Client
}

func newYTDLPResolver(logger *slog.Logger, apiKey string) *ytdlpResolver {
	return &ytdlpResolver{
		logger:  logger,
		apiKey:  apiKey,
		apiBase: "https://www.googleapis.com/youtube/v3/videos",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *ytdlpResolver) Resolve(ctx context.Context, sourceURL string) (*VideoInfo, error) {
	info, err := r.resolveYTDLP(ctx, sourceURL)
	if err == nil {
		return info, nil
	}
	r.logger.Warn("yt-dlp metadata lookup failed, trying data api", "url", sourceURL, "error", err)

	id := videoID(sourceURL)
	if id == "" {
		return nil, fmt.Errorf("%w: no video id in url: %v", ErrResolution, err)
	}
	info, apiErr := r.resolveDataAPI(ctx, id)
	if apiErr != nil {
		return nil, fmt.Errorf("%w: yt-dlp: %v; data api: %v", ErrResolution, err, apiErr)
	}
	return info, nil
}

func (r *ytdlpResolver) resolveYTDLP(ctx context.Context, sourceURL string) (*VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "yt-dlp", "-J", "--no-warnings", "--skip-download", "--no-playlist", sourceURL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %v | %s", err, strings.TrimSpace(stderr.String()))
	}

	var raw struct {
		ID        string  `json:"id"`
		Title     string  `json:"title"`
		Duration  float64 `json:"duration"`
		Thumbnail string  `json:"thumbnail"`
		Uploader  string  `json:"uploader"`
		ViewCount int64   `json:"view_count"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("yt-dlp output parse: %w", err)
	}
	info := &VideoInfo{
		ID:        raw.ID,
		Title:     raw.Title,
		Duration:  raw.Duration,
		Thumbnail: raw.Thumbnail,
		Uploader:  raw.Uploader,
		ViewCount: raw.ViewCount,
	}
	if info.Title == "" {
		info.Title = "Untitled"
	}
	if info.ID == "" {
		info.ID = videoID(sourceURL)
	}
	return info, nil
}

func (r *ytdlpResolver) resolveDataAPI(ctx context.Context, id string) (*VideoInfo, error) {
	if r.apiKey == "" {
		return nil, errors.New("no api key configured")
	}

	q := url.Values{}
	q.Set("part", "snippet,contentDetails,statistics")
	q.Set("id", id)
	q.Set("key", r.apiKey)
	endpoint := r.apiBase + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("data api status %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					High struct {
						URL string `json:"url"`
					} `json:"high"`
				} `json:"thumbnails"`
			} `json:"snippet"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
			Statistics struct {
				ViewCount string `json:"viewCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("data api decode: %w", err)
	}
	if len(body.Items) == 0 {
		return nil, errors.New("video not found")
	}

	item := body.Items[0]
	views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
	return &VideoInfo{
		ID:        id,
		Title:     item.Snippet.Title,
		Duration:  parseISODuration(item.ContentDetails.Duration),
		Thumbnail: item.Snippet.Thumbnails.High.URL,
		Uploader:  item.Snippet.ChannelTitle,
		ViewCount: views,
	}, nil
}
