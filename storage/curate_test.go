package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMasterList_Categorize(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()
	doc := sampleDocument()
	doc.Videos[0].LastChecked = "2020-01-01"
	if err := m.Save(ctx, doc); err != nil {
		t.Fatal(err)
	}

	ok, err := m.Categorize(ctx, "a", Categorization{
		Categories:     []string{"theology", "debate"},
		RelevanceScore: intPtr(7),
		Notes:          "worth a watch",
	})
	if err != nil || !ok {
		t.Fatalf("Categorize() = %v, %v", ok, err)
	}

	loaded, err := m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	v := loaded.Videos[0]
	if v.Status != StatusCategorized || v.NeedsReview {
		t.Errorf("status = %q needs_review = %v", v.Status, v.NeedsReview)
	}
	if len(v.Categories) != 2 || *v.RelevanceScore != 7 || v.Notes != "worth a watch" {
		t.Errorf("categorized video = %+v", v)
	}
	if v.LastChecked != "2024-03-09" {
		t.Errorf("LastChecked = %q", v.LastChecked)
	}

	uncategorized, err := m.ListUncategorized(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(uncategorized) != 1 || uncategorized[0].VideoID != "b" {
		t.Errorf("ListUncategorized() = %v", ids(uncategorized))
	}
}

func TestMasterList_CategorizeErrors(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()
	if err := m.Save(ctx, sampleDocument()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		c       Categorization
		wantErr bool
	}{
		{"no categories", Categorization{}, true},
		{"blank category", Categorization{Categories: []string{" "}}, true},
		{"score too high", Categorization{Categories: []string{"x"}, RelevanceScore: intPtr(11)}, true},
		{"score too low", Categorization{Categories: []string{"x"}, RelevanceScore: intPtr(0)}, true},
		{"valid", Categorization{Categories: []string{"x"}, RelevanceScore: intPtr(10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Categorize(ctx, "a", tt.c)
			if (err != nil) != tt.wantErr {
				t.Errorf("Categorize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Categorize() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	ok, err := m.Categorize(ctx, "nope", Categorization{Categories: []string{"x"}})
	if err != nil || ok {
		t.Errorf("Categorize(unknown) = %v, %v; want false, nil", ok, err)
	}
}

func TestMasterList_MarkPriority(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()
	if err := m.Save(ctx, sampleDocument()); err != nil {
		t.Fatal(err)
	}

	ok, err := m.MarkPriority(ctx, "b", "apologetics", 10)
	if err != nil || !ok {
		t.Fatalf("MarkPriority() = %v, %v", ok, err)
	}
	doc, _ := m.Load(ctx)
	v := doc.Videos[1]
	if v.Notes != PriorityNote || *v.RelevanceScore != 10 || v.Categories[0] != "apologetics" {
		t.Errorf("priority video = %+v", v)
	}
}

func TestNewReport(t *testing.T) {
	doc := NewDocument("https://www.youtube.com/@test")
	dates := []string{"2024-01-05", "2024-01-01", "2024-01-07", "2024-01-02", "2024-01-03", "2024-01-06"}
	for i, d := range dates {
		v := NewVideo(string(rune('a'+i)), "t", d, "", fixedNow)
		doc.Videos = append(doc.Videos, v)
	}
	doc.Videos[0].Status = StatusCategorized
	doc.Videos[0].Categories = []string{"theology", "debate"}
	doc.Videos[0].RelevanceScore = intPtr(8)
	doc.Videos[1].Status = StatusCategorized
	doc.Videos[1].Categories = []string{"theology"}
	doc.Videos[1].RelevanceScore = intPtr(5)

	r := NewReport(doc)

	if r.TotalVideos != 6 {
		t.Errorf("TotalVideos = %d", r.TotalVideos)
	}
	wantStatuses := []Count{{"categorized", 2}, {"uncategorized", 4}}
	if len(r.Statuses) != 2 || r.Statuses[0] != wantStatuses[0] || r.Statuses[1] != wantStatuses[1] {
		t.Errorf("Statuses = %v, want %v", r.Statuses, wantStatuses)
	}
	wantCats := []Count{{"debate", 1}, {"theology", 2}}
	if len(r.Categories) != 2 || r.Categories[0] != wantCats[0] || r.Categories[1] != wantCats[1] {
		t.Errorf("Categories = %v, want %v", r.Categories, wantCats)
	}
	if r.ScoredVideos != 2 || r.AverageRelevance != 6.5 {
		t.Errorf("scores = %d avg %v", r.ScoredVideos, r.AverageRelevance)
	}
	if len(r.Recent) != 5 || r.Recent[0].UploadDate != "2024-01-07" || r.Recent[4].UploadDate != "2024-01-02" {
		t.Errorf("Recent = %v", r.Recent)
	}
}
