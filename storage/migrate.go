package storage

import (
	"context"
	"time"
)

const (
	// UnknownTitle stands in for a missing title.
	UnknownTitle = "Unknown Title"
	// UnknownUploadDate is written for legacy records without an upload date.
	UnknownUploadDate = "Unknown"
)

// Normalize backfills the fields that records written before automated
// discovery lack. Such records were added by hand, so a missing status
// becomes categorized; absent auto_detected and needs_review already decode
// as false. It also fills last_checked, title, url and upload_date, and the
// channel URL of the document when empty. It returns the number of videos changed.
func (d *Document) Normalize(channelURL string, now time.Time) int {
	if d.Videos == nil {
		d.Videos = []Video{}
	}
	if d.ChannelURL == "" {
		d.ChannelURL = channelURL
	}

	changed := 0
	for i := range d.Videos {
		v := &d.Videos[i]
		before := *v
		if v.Status == "" {
			v.Status = StatusCategorized
		}
		if v.LastChecked == "" {
			v.LastChecked = now.Format(DateLayout)
		}
		if v.Title == "" {
			v.Title = UnknownTitle
		}
		if v.URL == "" && v.VideoID != "" {
			v.URL = WatchURL(v.VideoID)
		}
		if v.UploadDate == "" {
			v.UploadDate = UnknownUploadDate
		}
		if v.Categories == nil {
			v.Categories = []string{}
		}
		if before.Status != v.Status || before.LastChecked != v.LastChecked ||
			before.Title != v.Title || before.URL != v.URL || before.UploadDate != v.UploadDate {
			changed++
		}
	}
	return changed
}

// MigrationResult summarises Migrate.
type MigrationResult struct {
	Updated     int
	TotalVideos int
	// MissingIDs counts records without a video_id. They are kept as is.
	MissingIDs int
}

// Migrate normalizes a master list written by older tooling and saves it,
// stamping last_updated. The previous content is kept in BackupPath. A
// missing master list is reported as ErrNotFound rather than created.
func (m *MasterList) Migrate(ctx context.Context) (MigrationResult, error) {
	if !fileExists(m.path) {
		return MigrationResult{}, &StorageError{Op: "migrate", Entity: "master list", ID: m.path, Err: ErrNotFound}
	}
	var res MigrationResult
	err := m.Mutate(ctx, func(doc *Document) (bool, error) {
		now := m.now()
		res.Updated = doc.Normalize(m.channelURL, now)
		res.TotalVideos = len(doc.Videos)
		for _, v := range doc.Videos {
			if v.VideoID == "" {
				res.MissingIDs++
				m.logger.Warn().Str("title", v.Title).Msg("video without video_id")
			}
		}
		doc.LastUpdated = now.Format(DateLayout)
		return true, nil
	})
	if err != nil {
		return MigrationResult{}, err
	}
	return res, nil
}
