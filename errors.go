package ytcurate

import (
	"ytcurate/config"
	ythttp "ytcurate/http"
	"ytcurate/pipeline"
	"ytcurate/storage"
	"ytcurate/youtube"
)

// Error types exported for library users.
//
// Sentinels are matched with errors.Is:
//
//	if errors.Is(err, ytcurate.ErrChannelNotFound) {
//		fmt.Println("Channel not found")
//	}
//
// Wrapped errors carry context and are extracted with errors.As:
//
//	var fetchErr *ytcurate.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("%s failed for %s: %v\n", fetchErr.Method, fetchErr.Channel, fetchErr.Err)
//	}
//
// A video missing from the master list is not an error: lookups such as
// MasterList.LinkTranscript report it with a false result.

type (
	// ConfigError wraps failures to read or parse the settings file.
	ConfigError = config.ConfigError
	// ValidationError names a setting and the rule it violates.
	ValidationError = config.ValidationError
	// StrategyError reports that a method could not be constructed.
	StrategyError = youtube.StrategyError
	// FetchError wraps a failed channel fetch and names the method.
	FetchError = youtube.FetchError
	// TranscriptError wraps a failed transcript check or download.
	TranscriptError = youtube.TranscriptError
	// StorageError wraps a failed master list read or write.
	StorageError = storage.StorageError
	// RateLimitError reports a throttled HTTP request.
	RateLimitError = ythttp.RateLimitError
)

var (
	// ErrConfigNotFound indicates the settings file does not exist.
	ErrConfigNotFound = config.ErrConfigNotFound
	// ErrInvalidConfig indicates a setting failed validation.
	ErrInvalidConfig = config.ErrInvalidConfig

	// ErrUnknownMethod indicates an unsupported method name.
	ErrUnknownMethod = youtube.ErrUnknownMethod
	// ErrMissingCredential indicates youtube_api was chosen without an API key.
	ErrMissingCredential = youtube.ErrMissingCredential
	// ErrChannelNotFound indicates the channel locator matched nothing.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrInvalidLocator indicates a string that is not a channel URL, handle or id.
	ErrInvalidLocator = youtube.ErrInvalidLocator

	// ErrNotFound indicates the video is not in the master list.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidInput indicates a rejected curator input.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrStorageCorrupt indicates the master list could not be decoded.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates the master list lock was not acquired in time.
	ErrLockTimeout = storage.ErrLockTimeout

	// ErrNoVideosFetched indicates a rebuild fetch returned nothing.
	ErrNoVideosFetched = pipeline.ErrNoVideosFetched
	// ErrNoTranscript indicates a video has no transcript to download.
	ErrNoTranscript = pipeline.ErrNoTranscript
)
