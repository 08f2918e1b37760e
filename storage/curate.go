package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// PriorityNote is the note recorded by MarkPriority.
const PriorityNote = "Priority video"

// ListUncategorized returns the videos still awaiting curation, in list order.
func (m *MasterList) ListUncategorized(ctx context.Context) ([]Video, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	var out []Video
	for _, v := range doc.Videos {
		if v.Status == StatusUncategorized {
			out = append(out, v)
		}
	}
	return out, nil
}

// Categorization is a curator decision applied by Categorize.
type Categorization struct {
	Categories []string
	// RelevanceScore is left unchanged when nil.
	RelevanceScore *int
	// Notes is left unchanged when empty.
	Notes string
}

// Validate checks the categorization before it touches the master list.
func (c Categorization) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidInput)
	}
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat) == "" {
			return fmt.Errorf("%w: empty category", ErrInvalidInput)
		}
	}
	if c.RelevanceScore != nil && (*c.RelevanceScore < 1 || *c.RelevanceScore > 10) {
		return fmt.Errorf("%w: relevance score %d outside 1-10", ErrInvalidInput, *c.RelevanceScore)
	}
	return nil
}

// Categorize applies c to videoID: status becomes categorized, needs_review
// false and last_checked today. It returns false when the video is unknown.
func (m *MasterList) Categorize(ctx context.Context, videoID string, c Categorization) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	found := false
	err := m.Mutate(ctx, func(doc *Document) (bool, error) {
		i := doc.Find(videoID)
		if i < 0 {
			return false, nil
		}
		found = true
		v := &doc.Videos[i]
		v.Categories = append([]string(nil), c.Categories...)
		v.Status = StatusCategorized
		v.NeedsReview = false
		v.LastChecked = m.now().Format(DateLayout)
		if c.RelevanceScore != nil {
			score := *c.RelevanceScore
			v.RelevanceScore = &score
		}
		if c.Notes != "" {
			v.Notes = c.Notes
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// MarkPriority categorizes videoID under a single category with the given
// relevance score and the priority note.
func (m *MasterList) MarkPriority(ctx context.Context, videoID, category string, relevance int) (bool, error) {
	return m.Categorize(ctx, videoID, Categorization{
		Categories:     []string{category},
		RelevanceScore: &relevance,
		Notes:          PriorityNote,
	})
}

// Count is a label with a tally, used by Report breakdowns.
type Count struct {
	Label string
	Count int
}

// Report is a summary of the master list for curators.
type Report struct {
	TotalVideos int
	LastUpdated string
	ChannelURL  string
	// Statuses is ordered by first appearance in the list.
	Statuses []Count
	// Categories is ordered by category name.
	Categories []Count
	// ScoredVideos is the number of videos with a relevance score.
	ScoredVideos int
	// AverageRelevance is zero when no video is scored.
	AverageRelevance float64
	// Recent holds up to five videos with the latest upload dates.
	Recent []Video
}

// BuildReport summarises the current master list.
func (m *MasterList) BuildReport(ctx context.Context) (*Report, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewReport(doc), nil
}

// NewReport summarises doc.
func NewReport(doc *Document) *Report {
	r := &Report{
		TotalVideos: len(doc.Videos),
		LastUpdated: doc.LastUpdated,
		ChannelURL:  doc.ChannelURL,
	}

	statusIdx := map[string]int{}
	categories := map[string]int{}
	total := 0
	for _, v := range doc.Videos {
		status := string(v.Status)
		if status == "" {
			status = "unknown"
		}
		if i, ok := statusIdx[status]; ok {
			r.Statuses[i].Count++
		} else {
			statusIdx[status] = len(r.Statuses)
			r.Statuses = append(r.Statuses, Count{Label: status, Count: 1})
		}
		for _, c := range v.Categories {
			categories[c]++
		}
		if v.RelevanceScore != nil {
			r.ScoredVideos++
			total += *v.RelevanceScore
		}
	}
	for label, n := range categories {
		r.Categories = append(r.Categories, Count{Label: label, Count: n})
	}
	sort.Slice(r.Categories, func(i, j int) bool { return r.Categories[i].Label < r.Categories[j].Label })
	if r.ScoredVideos > 0 {
		r.AverageRelevance = float64(total) / float64(r.ScoredVideos)
	}

	recent := append([]Video(nil), doc.Videos...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].UploadDate > recent[j].UploadDate })
	if len(recent) > 5 {
		recent = recent[:5]
	}
	r.Recent = recent
	return r
}
