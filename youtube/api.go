package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytcurate/config"
	"ytcurate/storage"
)

const (
	// apiPageSize is the Data API's maximum page size.
	apiPageSize = 50
	// maxAPIPages bounds pagination of the uploads playlist.
	maxAPIPages = 20
	// searchResults is how many channel candidates a handle search considers.
	searchResults = 5
)

// APIFetcher implements VideoFetcher with the YouTube Data API v3.
type APIFetcher struct {
	service *youtube.Service
	logger  zerolog.Logger
	now     func() time.Time
}

func newAPIFetcher(ctx context.Context, cfg config.FetcherConfig, o options) (*APIFetcher, error) {
	hc, err := o.httpClientFor(cfg.Timeout, "")
	if err != nil {
		return nil, err
	}
	std := hc.Standard()
	keyed := &http.Client{
		Timeout:   std.Timeout,
		Transport: &transport.APIKey{Key: cfg.APIKey, Transport: std.Transport},
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(keyed)}, o.apiOptions...)
	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &APIFetcher{service: service, logger: o.logger, now: o.now}, nil
}

// Method returns config.MethodYouTubeAPI.
func (a *APIFetcher) Method() string { return config.MethodYouTubeAPI }

// ChannelID resolves locator without a request when it names a channel id,
// otherwise via a channel search.
func (a *APIFetcher) ChannelID(ctx context.Context, locator string) (string, error) {
	id, err := a.channelID(ctx, locator)
	if err != nil {
		return "", &FetchError{Method: a.Method(), Channel: locator, Err: err}
	}
	return id, nil
}

func (a *APIFetcher) channelID(ctx context.Context, locator string) (string, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return "", err
	}
	if loc.Kind == LocatorChannelID {
		return loc.Value, nil
	}
	return a.searchChannel(ctx, loc.Value)
}

// searchChannel prefers the result whose title matches name, else the first.
func (a *APIFetcher) searchChannel(ctx context.Context, name string) (string, error) {
	resp, err := a.service.Search.List([]string{"snippet"}).
		Q(name).
		Type("channel").
		MaxResults(searchResults).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search channel %q: %w", name, err)
	}

	first := ""
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.ChannelId == "" {
			continue
		}
		if item.Snippet != nil && sameChannelName(name, item.Snippet.Title) {
			a.logger.Debug().Str("channel_id", item.Id.ChannelId).Str("title", item.Snippet.Title).Msg("channel matched by title")
			return item.Id.ChannelId, nil
		}
		if first == "" {
			first = item.Id.ChannelId
		}
	}
	if first == "" {
		return "", ErrChannelNotFound
	}
	a.logger.Debug().Str("channel_id", first).Msg("no title match, using first search result")
	return first, nil
}

// FetchVideos reads the channel's uploads playlist newest first.
func (a *APIFetcher) FetchVideos(ctx context.Context, locator string, maxCount int) ([]storage.Video, error) {
	videos, err := a.fetchVideos(ctx, locator, maxCount)
	if err != nil {
		return nil, &FetchError{Method: a.Method(), Channel: locator, Err: err}
	}
	return videos, nil
}

func (a *APIFetcher) fetchVideos(ctx context.Context, locator string, maxCount int) ([]storage.Video, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	channelID, err := a.channelID(ctx, locator)
	if err != nil {
		return nil, err
	}

	uploads, err := a.uploadsPlaylist(ctx, channelID)
	if err != nil {
		return nil, err
	}
	a.logger.Info().Str("channel_id", channelID).Str("playlist", uploads).Int("max", maxCount).Msg("listing uploads")

	now := a.now()
	videos := make([]storage.Video, 0, min(maxCount, apiPageSize*maxAPIPages))
	pageToken := ""
	for page := 0; page < maxAPIPages && len(videos) < maxCount; page++ {
		call := a.service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(uploads).
			MaxResults(int64(min(apiPageSize, maxCount-len(videos)))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list playlist items (page %d): %w", page+1, err)
		}

		for _, item := range resp.Items {
			if len(videos) == maxCount {
				break
			}
			v, ok := videoFromPlaylistItem(item, now)
			if !ok {
				a.logger.Warn().Str("playlist", uploads).Msg("skipping playlist item without a video id")
				continue
			}
			videos = append(videos, v)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return videos, nil
}

func (a *APIFetcher) uploadsPlaylist(ctx context.Context, channelID string) (string, error) {
	resp, err := a.service.Channels.List([]string{"contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("get channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return "", ErrChannelNotFound
	}
	cd := resp.Items[0].ContentDetails
	if cd == nil || cd.RelatedPlaylists == nil || cd.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("%w: channel %s has no uploads playlist", ErrMalformedResponse, channelID)
	}
	return cd.RelatedPlaylists.Uploads, nil
}

func videoFromPlaylistItem(item *youtube.PlaylistItem, now time.Time) (storage.Video, bool) {
	s := item.Snippet
	if s == nil || s.ResourceId == nil || s.ResourceId.VideoId == "" {
		return storage.Video{}, false
	}
	uploadDate := s.PublishedAt
	if len(uploadDate) > len(storage.DateLayout) {
		uploadDate = uploadDate[:len(storage.DateLayout)]
	}
	return storage.NewVideo(s.ResourceId.VideoId, s.Title, uploadDate, s.Description, now), true
}
