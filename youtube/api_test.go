package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"ytcurate/config"
	ythttp "ytcurate/http"
	"ytcurate/storage"
)

var fixedNow = time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

// fakeDataAPI serves the three Data API endpoints the fetcher uses.
type fakeDataAPI struct {
	t *testing.T

	searchItems []map[string]any
	// available is the number of uploads; -1 means unlimited.
	available   int
	channelCode int

	mu          sync.Mutex
	pageSizes   []int
	searchCalls int
	keys        []string
}

func (f *fakeDataAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.keys = append(f.keys, r.URL.Query().Get("key"))
	f.mu.Unlock()

	switch r.URL.Path {
	case "/youtube/v3/search":
		f.mu.Lock()
		f.searchCalls++
		f.mu.Unlock()
		if got := r.URL.Query().Get("type"); got != "channel" {
			f.t.Errorf("search type = %q", got)
		}
		writeJSON(w, map[string]any{"items": f.searchItems})

	case "/youtube/v3/channels":
		if f.channelCode != 0 {
			w.WriteHeader(f.channelCode)
			writeJSON(w, map[string]any{"error": map[string]any{"code": f.channelCode, "message": "quotaExceeded"}})
			return
		}
		writeJSON(w, map[string]any{"items": []any{map[string]any{
			"id":             r.URL.Query().Get("id"),
			"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UU-uploads"}},
		}}})

	case "/youtube/v3/playlistItems":
		q := r.URL.Query()
		if q.Get("playlistId") != "UU-uploads" {
			f.t.Errorf("playlistId = %q", q.Get("playlistId"))
		}
		size, _ := strconv.Atoi(q.Get("maxResults"))
		offset, _ := strconv.Atoi(q.Get("pageToken"))

		f.mu.Lock()
		f.pageSizes = append(f.pageSizes, size)
		f.mu.Unlock()

		n := size
		if f.available >= 0 && offset+n > f.available {
			n = f.available - offset
		}
		items := make([]any, 0, n)
		for i := offset; i < offset+n; i++ {
			items = append(items, map[string]any{"snippet": map[string]any{
				"title":       fmt.Sprintf("Video %d", i),
				"description": strings.Repeat("d", 600),
				"publishedAt": "2024-03-01T10:00:00Z",
				"resourceId":  map[string]any{"kind": "youtube#video", "videoId": fmt.Sprintf("vid%04d", i)},
			}})
		}
		resp := map[string]any{"items": items}
		if f.available < 0 || offset+n < f.available {
			resp["nextPageToken"] = strconv.Itoa(offset + n)
		}
		writeJSON(w, resp)

	default:
		f.t.Errorf("unexpected request %s", r.URL.Path)
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func unlimitedClient(t *testing.T) *ythttp.Client {
	t.Helper()
	cfg := ythttp.DefaultConfig()
	cfg.RateLimiter = ythttp.RateLimiterConfig{}
	c, err := ythttp.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestAPIFetcher(t *testing.T, api *fakeDataAPI) VideoFetcher {
	t.Helper()
	api.t = t
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	f, err := NewFetcher(context.Background(),
		config.FetcherConfig{Method: config.MethodYouTubeAPI, APIKey: "test-key", Timeout: 5 * time.Second},
		WithHTTPClient(unlimitedClient(t)),
		WithAPIOptions(option.WithEndpoint(srv.URL+"/")),
		WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	return f
}

func TestAPIFetcher_ChannelID(t *testing.T) {
	tests := []struct {
		name        string
		locator     string
		items       []map[string]any
		want        string
		wantSearch  int
		wantMissing bool
	}{
		{
			name:    "bare id resolves locally",
			locator: testChannelID,
			want:    testChannelID,
		},
		{
			name:    "channel url resolves locally",
			locator: "https://www.youtube.com/channel/" + testChannelID,
			want:    testChannelID,
		},
		{
			name:    "handle prefers title match",
			locator: "https://www.youtube.com/@AdamSeekerOfficial",
			items: []map[string]any{
				searchItem("UCfirstfirstfirstfirst01", "Someone Else"),
				searchItem("UCmatchmatchmatchmatch01", "Adam Seeker Official"),
			},
			want:       "UCmatchmatchmatchmatch01",
			wantSearch: 1,
		},
		{
			name:    "handle falls back to first result",
			locator: "@nobody",
			items: []map[string]any{
				searchItem("UCfirstfirstfirstfirst01", "Someone Else"),
				searchItem("UCsecondsecondsecond0001", "Another"),
			},
			want:       "UCfirstfirstfirstfirst01",
			wantSearch: 1,
		},
		{
			name:        "no results",
			locator:     "@nobody",
			wantSearch:  1,
			wantMissing: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeDataAPI{searchItems: tt.items}
			f := newTestAPIFetcher(t, api)

			got, err := f.ChannelID(context.Background(), tt.locator)
			if tt.wantMissing {
				var fe *FetchError
				if !errors.Is(err, ErrChannelNotFound) || !errors.As(err, &fe) || fe.Method != config.MethodYouTubeAPI {
					t.Errorf("ChannelID() error = %v, want FetchError wrapping ErrChannelNotFound", err)
				}
			} else if err != nil || got != tt.want {
				t.Errorf("ChannelID() = %q, %v, want %q", got, err, tt.want)
			}
			if api.searchCalls != tt.wantSearch {
				t.Errorf("search calls = %d, want %d", api.searchCalls, tt.wantSearch)
			}
		})
	}
}

func searchItem(id, title string) map[string]any {
	return map[string]any{
		"id":      map[string]any{"kind": "youtube#channel", "channelId": id},
		"snippet": map[string]any{"title": title},
	}
}

func TestAPIFetcher_FetchVideos(t *testing.T) {
	tests := []struct {
		name      string
		available int
		max       int
		wantCount int
		wantPages []int
	}{
		{name: "pages shrink to the remainder", available: -1, max: 120, wantCount: 120, wantPages: []int{50, 50, 20}},
		{name: "small request", available: -1, max: 7, wantCount: 7, wantPages: []int{7}},
		{name: "stops without a page token", available: 30, max: 50, wantCount: 30, wantPages: []int{50}},
		{name: "page cap", available: -1, max: 5000, wantCount: 20 * 50, wantPages: repeat(50, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeDataAPI{available: tt.available}
			f := newTestAPIFetcher(t, api)

			videos, err := f.FetchVideos(context.Background(), testChannelID, tt.max)
			if err != nil {
				t.Fatalf("FetchVideos() error = %v", err)
			}
			if len(videos) != tt.wantCount {
				t.Errorf("got %d videos, want %d", len(videos), tt.wantCount)
			}
			if fmt.Sprint(api.pageSizes) != fmt.Sprint(tt.wantPages) {
				t.Errorf("page sizes = %v, want %v", api.pageSizes, tt.wantPages)
			}
			for _, k := range api.keys {
				if k != "test-key" {
					t.Fatalf("request sent key %q", k)
				}
			}
		})
	}
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAPIFetcher_Mapping(t *testing.T) {
	f := newTestAPIFetcher(t, &fakeDataAPI{available: 2})

	videos, err := f.FetchVideos(context.Background(), testChannelID, 10)
	if err != nil {
		t.Fatalf("FetchVideos() error = %v", err)
	}
	v := videos[0]
	want := storage.Video{
		VideoID:      "vid0000",
		Title:        "Video 0",
		URL:          "https://www.youtube.com/watch?v=vid0000",
		UploadDate:   "2024-03-01",
		Status:       storage.StatusUncategorized,
		AutoDetected: true,
		NeedsReview:  true,
		LastChecked:  "2024-03-09",
	}
	if v.VideoID != want.VideoID || v.Title != want.Title || v.URL != want.URL ||
		v.UploadDate != want.UploadDate || v.Status != want.Status ||
		v.AutoDetected != want.AutoDetected || v.NeedsReview != want.NeedsReview ||
		v.LastChecked != want.LastChecked {
		t.Errorf("video = %+v, want %+v", v, want)
	}
	if len(v.Description) != storage.MaxDescriptionLength {
		t.Errorf("description length = %d, want %d", len(v.Description), storage.MaxDescriptionLength)
	}
}

func TestAPIFetcher_RemoteError(t *testing.T) {
	f := newTestAPIFetcher(t, &fakeDataAPI{channelCode: http.StatusNotFound})

	_, err := f.FetchVideos(context.Background(), testChannelID, 10)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("FetchVideos() error = %v, want *FetchError", err)
	}
	if fe.Method != config.MethodYouTubeAPI || !strings.Contains(err.Error(), "youtube_api") {
		t.Errorf("error does not name the method: %v", err)
	}
}

func TestNewFetcher_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.FetcherConfig
		want error
	}{
		{"unknown method", config.FetcherConfig{Method: "rss"}, ErrUnknownMethod},
		{"empty method", config.FetcherConfig{}, ErrUnknownMethod},
		{"api without key", config.FetcherConfig{Method: config.MethodYouTubeAPI}, ErrMissingCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFetcher(context.Background(), tt.cfg)
			var se *StrategyError
			if !errors.As(err, &se) || !errors.Is(err, tt.want) {
				t.Errorf("NewFetcher() error = %v, want StrategyError wrapping %v", err, tt.want)
			}
		})
	}
}

func TestNewFetcher_Ytdlp(t *testing.T) {
	f, err := NewFetcher(context.Background(), config.FetcherConfig{Method: config.MethodYtdlp})
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	if f.Method() != config.MethodYtdlp {
		t.Errorf("Method() = %q", f.Method())
	}
}
