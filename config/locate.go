package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultFile is the settings file name looked up in the working directory.
const DefaultFile = "config.env"

// xdgRelPath is the settings path relative to the XDG config directories.
var xdgRelPath = filepath.Join("ytcurate", DefaultFile)

// Locate resolves the settings file: an explicit path wins, then
// ./config.env, then ytcurate/config.env under the XDG config directories.
// When nothing exists it returns DefaultFile so the load error names it.
func Locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	if path, err := xdg.SearchConfigFile(xdgRelPath); err == nil {
		return path
	}
	return DefaultFile
}

// XDGPath returns $XDG_CONFIG_HOME/ytcurate/config.env, creating the directory.
func XDGPath() (string, error) {
	return xdg.ConfigFile(xdgRelPath)
}

// WriteDefault writes a commented settings template to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &ConfigError{Path: path, Err: err}
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return &ConfigError{Path: path, Err: ErrConfigExists}
		}
		return &ConfigError{Path: path, Err: err}
	}
	if _, err := fmt.Fprint(f, template); err != nil {
		f.Close()
		return &ConfigError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	return nil
}

const template = `# ytcurate settings
# One KEY=VALUE per line. No quoting: values are used as written, except
# that leading and trailing whitespace is dropped.
# Any key can be overridden by the environment as YTCURATE_<KEY>.

# Video list backend: youtube_api or ytdlp
MASTER_LIST_METHOD=ytdlp
# Transcript backend: ytdlp or youtube_transcript_api
TRANSCRIPT_METHOD=ytdlp

# Required for MASTER_LIST_METHOD=youtube_api
YOUTUBE_API_KEY=

CHANNEL_URL=https://www.youtube.com/@AdamSeekerOfficial
MASTER_FILE=data/videos_master.json
TRANSCRIPT_DIR=data/transcripts
MAX_VIDEOS_PER_UPDATE=50
UPDATE_FREQUENCY=daily
DEFAULT_CATEGORIES=critique-of-islam,theology,apologetics,debate

# yt-dlp options
YTDLP_COOKIES_FILE=
YTDLP_USE_PROXY=false
YTDLP_PATH=

# Proxy: either a full http:// URL or a username/password pair
WEBSHARE_PROXY=
WEBSHARE_PROXY_USERNAME=
WEBSHARE_PROXY_PASSWORD=

REQUEST_TIMEOUT=30s
# node_exporter textfile collector target, empty to disable
METRICS_TEXTFILE=
LOG_LEVEL=info
`
