package youtube

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// channelIDRegex matches YouTube channel IDs (UC followed by 22 base64 chars).
var channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)

// LocatorKind says how a channel is named in a locator.
type LocatorKind int

const (
	// LocatorChannelID is a UC… channel id.
	LocatorChannelID LocatorKind = iota
	// LocatorHandle is an @handle.
	LocatorHandle
	// LocatorCustom is a legacy /c/name custom URL.
	LocatorCustom
	// LocatorUser is a legacy /user/name URL.
	LocatorUser
)

// Locator is a parsed channel reference.
type Locator struct {
	Kind LocatorKind
	// Value is the channel id, or the handle/name without the @ prefix.
	Value string
}

// ParseLocator accepts a channel URL (https://www.youtube.com/@h,
// /channel/UC…, /c/name, /user/name, with or without a trailing tab such as
// /videos), a bare @handle or a bare channel id.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Locator{}, ErrInvalidLocator
	case channelIDRegex.MatchString(s):
		return Locator{Kind: LocatorChannelID, Value: s}, nil
	case strings.HasPrefix(s, "@") && !strings.Contains(s, "/"):
		return Locator{Kind: LocatorHandle, Value: s[1:]}, nil
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !isYouTubeHost(u.Hostname()) {
		return Locator{}, ErrInvalidLocator
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return Locator{}, ErrInvalidLocator
	}

	switch {
	case strings.HasPrefix(parts[0], "@") && len(parts[0]) > 1:
		return Locator{Kind: LocatorHandle, Value: parts[0][1:]}, nil
	case parts[0] == "channel" && len(parts) > 1 && channelIDRegex.MatchString(parts[1]):
		return Locator{Kind: LocatorChannelID, Value: parts[1]}, nil
	case parts[0] == "c" && len(parts) > 1 && parts[1] != "":
		return Locator{Kind: LocatorCustom, Value: parts[1]}, nil
	case parts[0] == "user" && len(parts) > 1 && parts[1] != "":
		return Locator{Kind: LocatorUser, Value: parts[1]}, nil
	}
	return Locator{}, ErrInvalidLocator
}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		return true
	}
	return false
}

// channelTabs are the channel page tabs replaced by /videos.
var channelTabs = []string{"/videos", "/streams", "/shorts", "/featured", "/playlists", "/community", "/about"}

// normalizeChannelURL points a channel locator at its /videos tab.
func normalizeChannelURL(locator string) string {
	locator = strings.TrimSpace(locator)
	if channelIDRegex.MatchString(locator) {
		return "https://www.youtube.com/channel/" + locator + "/videos"
	}
	if strings.HasPrefix(locator, "@") {
		return "https://www.youtube.com/" + locator + "/videos"
	}

	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	locator = strings.TrimSuffix(locator, "/")
	for _, tab := range channelTabs {
		if strings.HasSuffix(locator, tab) {
			locator = strings.TrimSuffix(locator, tab)
			break
		}
	}
	return locator + "/videos"
}

// sameChannelName compares a handle with a channel title ignoring case,
// spaces and punctuation, so "AdamSeekerOfficial" matches "Adam Seeker Official".
func sameChannelName(handle, title string) bool {
	return foldName(handle) == foldName(title) && foldName(handle) != ""
}

func foldName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
