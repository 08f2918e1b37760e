package storage

import "time"

// DefaultRebuildReason is recorded on documents produced by Rebuild.
const DefaultRebuildReason = "Complete rebuild from scratch using configured method"

// Update appends the fetched videos whose IDs are not already in existing,
// keeping fetch order. Duplicates within fetched are dropped as well.
// It returns the new document and the appended videos; existing is not modified.
func Update(existing *Document, fetched []Video, now time.Time) (*Document, []Video) {
	doc := *existing
	doc.Videos = make([]Video, len(existing.Videos), len(existing.Videos)+len(fetched))
	copy(doc.Videos, existing.Videos)

	known := make(map[string]struct{}, len(doc.Videos)+len(fetched))
	for _, v := range doc.Videos {
		known[v.VideoID] = struct{}{}
	}

	var added []Video
	for _, v := range fetched {
		if v.VideoID == "" {
			continue
		}
		if _, ok := known[v.VideoID]; ok {
			continue
		}
		known[v.VideoID] = struct{}{}
		doc.Videos = append(doc.Videos, v)
		added = append(added, v)
	}

	doc.TotalVideos = len(doc.Videos)
	doc.LastUpdated = now.Format(DateLayout)
	return &doc, added
}

// RebuildInfo is the metadata stamped on a rebuilt document.
type RebuildInfo struct {
	ChannelURL       string
	Reason           string
	MasterMethod     string
	TranscriptMethod string
}

// Rebuild replaces the whole video collection with fetched. Videos present
// only in old are dropped.
//
// With preserveManual, every fetched video also found in old (by ID) takes
// over the old curator fields and transcript linkage. Non-empty categories
// carry status categorized and needs_review false with them. old may be nil.
// It returns the new document and the number of videos whose categories
// were preserved.
func Rebuild(fetched []Video, old *Document, preserveManual bool, info RebuildInfo, now time.Time) (*Document, int) {
	videos := make([]Video, 0, len(fetched))
	videos = append(videos, fetched...)

	preserved := 0
	if preserveManual && old != nil && len(old.Videos) > 0 {
		byID := make(map[string]*Video, len(old.Videos))
		for i := range old.Videos {
			byID[old.Videos[i].VideoID] = &old.Videos[i]
		}
		for i := range videos {
			prev, ok := byID[videos[i].VideoID]
			if !ok {
				continue
			}
			if preserveCurated(&videos[i], prev) {
				preserved++
			}
		}
	}

	reason := info.Reason
	if reason == "" {
		reason = DefaultRebuildReason
	}
	today := now.Format(DateLayout)
	doc := &Document{
		Videos:           videos,
		LastUpdated:      today,
		TotalVideos:      len(videos),
		ChannelURL:       info.ChannelURL,
		RebuildDate:      today,
		RebuildReason:    reason,
		MasterMethod:     info.MasterMethod,
		TranscriptMethod: info.TranscriptMethod,
	}
	return doc, preserved
}

// preserveCurated copies curator fields and transcript linkage from prev to v.
// It reports whether categories were carried over.
func preserveCurated(v, prev *Video) bool {
	categorized := false
	if len(prev.Categories) > 0 {
		v.Categories = append([]string(nil), prev.Categories...)
		v.Status = StatusCategorized
		v.NeedsReview = false
		categorized = true
	}
	if prev.RelevanceScore != nil {
		score := *prev.RelevanceScore
		v.RelevanceScore = &score
	}
	if prev.Notes != "" {
		v.Notes = prev.Notes
	}
	if len(prev.KeyTopics) > 0 {
		v.KeyTopics = append([]string(nil), prev.KeyTopics...)
	}
	if prev.TranscriptFile != "" {
		v.TranscriptFile = prev.TranscriptFile
		v.TranscriptDownloaded = prev.TranscriptDownloaded
		v.TranscriptDownloadDate = prev.TranscriptDownloadDate
	}
	return categorized
}
