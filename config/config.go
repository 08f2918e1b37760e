// Package config loads the KEY=VALUE settings file that drives the
// acquisition pipeline and derives the per-backend configuration from it.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Acquisition and transcript method names accepted in the settings file.
const (
	MethodYouTubeAPI    = "youtube_api"
	MethodYtdlp         = "ytdlp"
	MethodTranscriptAPI = "youtube_transcript_api"
)

// EnvPrefix prefixes environment variables that override file settings,
// e.g. YTCURATE_MAX_VIDEOS_PER_UPDATE.
const EnvPrefix = "YTCURATE"

// Settings file keys.
const (
	KeyMasterListMethod   = "MASTER_LIST_METHOD"
	KeyTranscriptMethod   = "TRANSCRIPT_METHOD"
	KeyAPIKey             = "YOUTUBE_API_KEY"
	KeyChannelURL         = "CHANNEL_URL"
	KeyMasterFile         = "MASTER_FILE"
	KeyTranscriptDir      = "TRANSCRIPT_DIR"
	KeyMaxVideosPerUpdate = "MAX_VIDEOS_PER_UPDATE"
	KeyUpdateFrequency    = "UPDATE_FREQUENCY"
	KeyCookiesFile        = "YTDLP_COOKIES_FILE"
	KeyUseProxy           = "YTDLP_USE_PROXY"
	KeyYtdlpPath          = "YTDLP_PATH"
	KeyProxy              = "WEBSHARE_PROXY"
	KeyProxyUsername      = "WEBSHARE_PROXY_USERNAME"
	KeyProxyPassword      = "WEBSHARE_PROXY_PASSWORD"
	KeyDefaultCategories  = "DEFAULT_CATEGORIES"
	KeyRequestTimeout     = "REQUEST_TIMEOUT"
	KeyMetricsTextfile    = "METRICS_TEXTFILE"
	KeyLogLevel           = "LOG_LEVEL"
)

// ChannelURLPrefix is the required prefix of CHANNEL_URL.
const ChannelURLPrefix = "https://www.youtube.com/"

// WebshareProxyHost is the proxy endpoint used when only credentials are configured.
const WebshareProxyHost = "proxy.webshare.io:80"

var defaults = map[string]string{
	KeyMasterListMethod:   MethodYouTubeAPI,
	KeyTranscriptMethod:   MethodYtdlp,
	KeyAPIKey:             "",
	KeyChannelURL:         "https://www.youtube.com/@AdamSeekerOfficial",
	KeyMasterFile:         "data/videos_master.json",
	KeyTranscriptDir:      "data/transcripts",
	KeyMaxVideosPerUpdate: "50",
	KeyUpdateFrequency:    "daily",
	KeyCookiesFile:        "",
	KeyUseProxy:           "false",
	KeyYtdlpPath:          "",
	KeyProxy:              "",
	KeyProxyUsername:      "",
	KeyProxyPassword:      "",
	KeyDefaultCategories:  "critique-of-islam,theology,apologetics,debate",
	KeyRequestTimeout:     "30s",
	KeyMetricsTextfile:    "",
	KeyLogLevel:           "info",
}

// Settings is the validated configuration of one process. Treat it as read-only.
type Settings struct {
	// Path is the settings file the values were read from.
	Path string

	MasterMethod       string
	TranscriptMethod   string
	APIKey             string
	ChannelURL         string
	MasterFile         string
	TranscriptDir      string
	MaxVideosPerUpdate int
	UpdateFrequency    string
	CookiesFile        string
	UseProxy           bool
	YtdlpPath          string
	Proxy              string
	ProxyUsername      string
	ProxyPassword      string
	DefaultCategories  []string
	RequestTimeout     time.Duration
	MetricsTextfile    string
	LogLevel           string

	// Warnings lists non-fatal problems found during validation.
	Warnings []string
}

// Loader loads Settings from a file once and hands out the cached result
// on later calls. Construct one per process and pass it where needed.
type Loader struct {
	path   string
	logger zerolog.Logger

	mu       sync.Mutex
	settings *Settings
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for validation warnings.
func WithLogger(logger zerolog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader for the settings file at path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the settings, reading and validating the file on the first
// successful call only. Failed loads are not cached.
func (l *Loader) Load() (*Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.settings != nil {
		return l.settings, nil
	}
	s, err := load(l.path)
	if err != nil {
		return nil, err
	}
	for _, w := range s.Warnings {
		l.logger.Warn().Str("config", l.path).Msg(w)
	}
	l.settings = s
	return s, nil
}

// Load reads and validates the settings file at path without caching.
func Load(path string) (*Settings, error) {
	return NewLoader(path).Load()
}

func load(path string) (*Settings, error) {
	values, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return FromValues(path, values)
}

// FromValues builds Settings from parsed KEY=VALUE pairs. Defaults fill
// missing keys and YTCURATE_<KEY> environment variables take precedence
// over file values.
func FromValues(path string, values map[string]string) (*Settings, error) {
	v := newViper(values)

	s := &Settings{
		Path:             path,
		MasterMethod:     v.GetString(KeyMasterListMethod),
		TranscriptMethod: v.GetString(KeyTranscriptMethod),
		APIKey:           v.GetString(KeyAPIKey),
		ChannelURL:       v.GetString(KeyChannelURL),
		MasterFile:       v.GetString(KeyMasterFile),
		TranscriptDir:    v.GetString(KeyTranscriptDir),
		UpdateFrequency:  v.GetString(KeyUpdateFrequency),
		CookiesFile:      v.GetString(KeyCookiesFile),
		UseProxy:         strings.EqualFold(v.GetString(KeyUseProxy), "true"),
		YtdlpPath:        v.GetString(KeyYtdlpPath),
		Proxy:            v.GetString(KeyProxy),
		ProxyUsername:    v.GetString(KeyProxyUsername),
		ProxyPassword:    v.GetString(KeyProxyPassword),
		MetricsTextfile:  v.GetString(KeyMetricsTextfile),
		LogLevel:         v.GetString(KeyLogLevel),
	}
	s.DefaultCategories = splitList(v.GetString(KeyDefaultCategories))

	if err := s.validate(v); err != nil {
		return nil, err
	}
	return s, nil
}

func newViper(values map[string]string) *viper.Viper {
	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	fileValues := make(map[string]any, len(values))
	for key, val := range values {
		fileValues[key] = val
	}
	// MergeConfigMap only fails on nested map conversion, which flat
	// string values never trigger.
	_ = v.MergeConfigMap(fileValues)
	return v
}

// validate applies the rules in order and stops at the first failure.
func (s *Settings) validate(v *viper.Viper) error {
	switch s.MasterMethod {
	case MethodYouTubeAPI, MethodYtdlp:
	default:
		return &ValidationError{Key: KeyMasterListMethod, Rule: "must be " + MethodYouTubeAPI + " or " + MethodYtdlp + ", got " + strconv.Quote(s.MasterMethod)}
	}
	switch s.TranscriptMethod {
	case MethodYtdlp, MethodTranscriptAPI:
	default:
		return &ValidationError{Key: KeyTranscriptMethod, Rule: "must be " + MethodYtdlp + " or " + MethodTranscriptAPI + ", got " + strconv.Quote(s.TranscriptMethod)}
	}
	if s.MasterMethod == MethodYouTubeAPI && s.APIKey == "" {
		return &ValidationError{Key: KeyAPIKey, Rule: "is required when " + KeyMasterListMethod + "=" + MethodYouTubeAPI}
	}
	if s.MasterFile == "" {
		return &ValidationError{Key: KeyMasterFile, Rule: "must not be empty"}
	}
	if !strings.HasPrefix(s.ChannelURL, ChannelURLPrefix) {
		return &ValidationError{Key: KeyChannelURL, Rule: "must start with " + ChannelURLPrefix}
	}

	raw := strings.TrimSpace(v.GetString(KeyMaxVideosPerUpdate))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return &ValidationError{Key: KeyMaxVideosPerUpdate, Rule: "must be a positive integer, got " + strconv.Quote(raw)}
	}
	s.MaxVideosPerUpdate = n

	if (s.ProxyUsername == "") != (s.ProxyPassword == "") {
		return &ValidationError{Key: KeyProxyUsername, Rule: "and " + KeyProxyPassword + " must be set together"}
	}
	if s.Proxy != "" && !strings.HasPrefix(s.Proxy, "http://") {
		return &ValidationError{Key: KeyProxy, Rule: "must start with http://"}
	}

	rawTimeout := v.GetString(KeyRequestTimeout)
	timeout, err := time.ParseDuration(rawTimeout)
	if err != nil || timeout <= 0 {
		return &ValidationError{Key: KeyRequestTimeout, Rule: "must be a positive duration, got " + strconv.Quote(rawTimeout)}
	}
	s.RequestTimeout = timeout

	if s.CookiesFile != "" {
		if _, err := os.Stat(s.CookiesFile); err != nil {
			s.Warnings = append(s.Warnings, KeyCookiesFile+" "+s.CookiesFile+" not found")
		}
	}
	return nil
}

// ProxyURL returns the explicit proxy, or one derived from the proxy
// credentials, or "" when neither is configured.
func (s *Settings) ProxyURL() string {
	if s.Proxy != "" {
		return s.Proxy
	}
	if s.ProxyUsername != "" && s.ProxyPassword != "" {
		u := url.URL{
			Scheme: "http",
			User:   url.UserPassword(s.ProxyUsername, s.ProxyPassword),
			Host:   WebshareProxyHost,
		}
		return u.String()
	}
	return ""
}

// FetcherConfig configures the video acquisition backend.
type FetcherConfig struct {
	Method     string
	ChannelURL string
	MaxVideos  int
	Timeout    time.Duration

	// APIKey is set for youtube_api.
	APIKey string

	// The remaining fields are set for ytdlp.
	CookiesFile string
	UseProxy    bool
	// Proxy is only set when UseProxy is true.
	Proxy     string
	YtdlpPath string
}

// FetcherConfig projects the settings relevant to the acquisition backend.
func (s *Settings) FetcherConfig() FetcherConfig {
	fc := FetcherConfig{
		Method:     s.MasterMethod,
		ChannelURL: s.ChannelURL,
		MaxVideos:  s.MaxVideosPerUpdate,
		Timeout:    s.RequestTimeout,
	}
	switch s.MasterMethod {
	case MethodYouTubeAPI:
		fc.APIKey = s.APIKey
	case MethodYtdlp:
		fc.CookiesFile = s.CookiesFile
		fc.UseProxy = s.UseProxy
		fc.YtdlpPath = s.YtdlpPath
		if s.UseProxy {
			fc.Proxy = s.ProxyURL()
		}
	}
	return fc
}

// TranscriptConfig configures the transcript backend.
type TranscriptConfig struct {
	Method        string
	TranscriptDir string
	Timeout       time.Duration

	// CookiesFile, UseProxy and YtdlpPath are set for ytdlp.
	CookiesFile string
	UseProxy    bool
	YtdlpPath   string

	// Proxy is the proxy URL the backend must use, "" for a direct connection.
	Proxy string
}

// TranscriptConfig projects the settings relevant to the transcript backend.
// The yt-dlp backend only proxies when YTDLP_USE_PROXY is true; the
// transcript service uses any configured proxy.
func (s *Settings) TranscriptConfig() TranscriptConfig {
	tc := TranscriptConfig{
		Method:        s.TranscriptMethod,
		TranscriptDir: s.TranscriptDir,
		Timeout:       s.RequestTimeout,
	}
	switch s.TranscriptMethod {
	case MethodYtdlp:
		tc.CookiesFile = s.CookiesFile
		tc.UseProxy = s.UseProxy
		tc.YtdlpPath = s.YtdlpPath
		if s.UseProxy {
			tc.Proxy = s.ProxyURL()
		}
	case MethodTranscriptAPI:
		tc.Proxy = s.ProxyURL()
	}
	return tc
}

// Field is one line of a settings summary.
type Field struct {
	Key   string
	Value string
}

// Summary lists the effective settings with secrets masked.
func (s *Settings) Summary() []Field {
	return []Field{
		{KeyMasterListMethod, s.MasterMethod},
		{KeyTranscriptMethod, s.TranscriptMethod},
		{KeyAPIKey, mask(s.APIKey)},
		{KeyChannelURL, s.ChannelURL},
		{KeyMasterFile, s.MasterFile},
		{KeyTranscriptDir, s.TranscriptDir},
		{KeyMaxVideosPerUpdate, strconv.Itoa(s.MaxVideosPerUpdate)},
		{KeyUpdateFrequency, s.UpdateFrequency},
		{KeyCookiesFile, s.CookiesFile},
		{KeyUseProxy, strconv.FormatBool(s.UseProxy)},
		{KeyProxy, redactURL(s.ProxyURL())},
		{KeyDefaultCategories, strings.Join(s.DefaultCategories, ",")},
		{KeyRequestTimeout, s.RequestTimeout.String()},
		{KeyMetricsTextfile, s.MetricsTextfile},
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
