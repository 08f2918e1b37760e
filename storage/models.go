package storage

import "time"

// Status is the curation lifecycle state of a video.
type Status string

const (
	// StatusUncategorized marks a video nobody has curated yet.
	StatusUncategorized Status = "uncategorized"
	// StatusCategorized marks a video with curator-assigned categories.
	StatusCategorized Status = "categorized"
)

// DateLayout is the YYYY-MM-DD layout used for every date the pipeline writes.
const DateLayout = "2006-01-02"

// MaxDescriptionLength is the number of characters of a description kept at ingestion.
const MaxDescriptionLength = 500

// Video is one entry in the master list.
//
// UploadDate keeps whatever format the acquisition backend returned: the Data
// API yields YYYY-MM-DD while yt-dlp yields YYYYMMDD.
type Video struct {
	// VideoID is the platform-assigned video ID and the master list primary key.
	VideoID string `json:"video_id"`
	// Title is the video title.
	Title string `json:"title"`
	// URL is the canonical watch URL.
	URL string `json:"url"`
	// UploadDate is the upload date as reported by the backend.
	UploadDate string `json:"upload_date"`
	// Description is the video description, truncated at ingestion.
	Description string `json:"description"`
	// Duration is the length in seconds. Only yt-dlp reports it.
	Duration int `json:"duration,omitempty"`
	// Status is the curation state.
	Status Status `json:"status"`

	// Categories is the curator-assigned category list, written as [] when empty.
	Categories []string `json:"categories"`
	// RelevanceScore is the curator-assigned score from 1 to 10.
	RelevanceScore *int `json:"relevance_score"`
	// Notes is free-text curator notes.
	Notes string `json:"notes"`
	// KeyTopics is the curator-assigned topic list.
	KeyTopics []string `json:"key_topics,omitempty"`

	// AutoDetected is true for videos discovered by a fetch.
	AutoDetected bool `json:"auto_detected"`
	// NeedsReview is true until a curator has looked at the video.
	NeedsReview bool `json:"needs_review"`
	// LastChecked is the date the record was last fetched or curated.
	LastChecked string `json:"last_checked"`

	// TranscriptFile is the path of the linked WebVTT file.
	TranscriptFile string `json:"transcript_file,omitempty"`
	// TranscriptDownloaded is true once a transcript has been linked.
	TranscriptDownloaded bool `json:"transcript_downloaded,omitempty"`
	// TranscriptDownloadDate is the date the transcript was linked.
	TranscriptDownloadDate string `json:"transcript_download_date,omitempty"`
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// NewVideo returns a freshly discovered video with the provenance defaults
// every acquisition backend applies.
func NewVideo(id, title, uploadDate, description string, now time.Time) Video {
	return Video{
		VideoID:      id,
		Title:        title,
		URL:          WatchURL(id),
		UploadDate:   uploadDate,
		Description:  TruncateDescription(description),
		Status:       StatusUncategorized,
		AutoDetected: true,
		NeedsReview:  true,
		LastChecked:  now.Format(DateLayout),
	}
}

// TruncateDescription cuts s to MaxDescriptionLength characters.
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) <= MaxDescriptionLength {
		return s
	}
	return string(r[:MaxDescriptionLength])
}

// Document is the master list file.
type Document struct {
	// Videos is ordered by discovery and never reordered.
	Videos []Video `json:"videos"`
	// LastUpdated is the date of the last update or rebuild. Empty for a new list.
	LastUpdated string `json:"last_updated"`
	// TotalVideos is recomputed on every save.
	TotalVideos int `json:"total_videos"`
	// ChannelURL is the channel locator the list was built from.
	ChannelURL string `json:"channel_url"`

	// RebuildDate is set by a rebuild.
	RebuildDate string `json:"rebuild_date,omitempty"`
	// RebuildReason is set by a rebuild.
	RebuildReason string `json:"rebuild_reason,omitempty"`
	// MasterMethod is the acquisition method used by the last rebuild.
	MasterMethod string `json:"master_method,omitempty"`
	// TranscriptMethod is the transcript method configured at the last rebuild.
	TranscriptMethod string `json:"transcript_method,omitempty"`
}

// NewDocument returns an empty, well-formed master list for channelURL.
func NewDocument(channelURL string) *Document {
	return &Document{
		Videos:     []Video{},
		ChannelURL: channelURL,
	}
}

// Find returns the index of the video with the given ID, or -1.
func (d *Document) Find(videoID string) int {
	for i := range d.Videos {
		if d.Videos[i].VideoID == videoID {
			return i
		}
	}
	return -1
}

// TranscriptStats summarises transcript coverage of a master list.
type TranscriptStats struct {
	// TotalVideos is the number of videos in the list.
	TotalVideos int `json:"total_videos"`
	// WithTranscripts counts videos with a linked transcript file.
	WithTranscripts int `json:"videos_with_transcripts"`
	// FilesExist counts linked transcript files still present on disk.
	FilesExist int `json:"transcript_files_exist"`
	// WithoutTranscripts counts videos whose transcript is unlinked or missing on disk.
	WithoutTranscripts int `json:"videos_without_transcripts"`
}

// Coverage returns the percentage of videos with a transcript present on disk.
func (s TranscriptStats) Coverage() float64 {
	if s.TotalVideos == 0 {
		return 0
	}
	return float64(s.FilesExist) / float64(s.TotalVideos) * 100
}
