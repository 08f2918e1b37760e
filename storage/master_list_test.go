package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)

func newTestMasterList(t *testing.T) *MasterList {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "videos_master.json")
	return NewMasterList(path,
		WithChannelURL("https://www.youtube.com/@test"),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func intPtr(n int) *int { return &n }

func sampleDocument() *Document {
	return &Document{
		Videos: []Video{
			NewVideo("a", "First", "2024-01-01", "first video", fixedNow),
			NewVideo("b", "Second", "20240102", "second video", fixedNow),
		},
		LastUpdated: "2024-03-01",
		ChannelURL:  "https://www.youtube.com/@test",
	}
}

func TestMasterList_LoadMissing(t *testing.T) {
	m := newTestMasterList(t)

	doc, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Videos) != 0 {
		t.Errorf("len(Videos) = %d, want 0", len(doc.Videos))
	}
	if doc.Videos == nil {
		t.Error("Videos is nil, want empty slice")
	}
	if doc.ChannelURL != "https://www.youtube.com/@test" {
		t.Errorf("ChannelURL = %q", doc.ChannelURL)
	}
}

func TestMasterList_LoadCorrupt(t *testing.T) {
	m := newTestMasterList(t)
	if err := os.MkdirAll(filepath.Dir(m.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := m.Load(context.Background())
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Fatalf("Load() error = %v, want ErrStorageCorrupt", err)
	}
	if doc == nil || len(doc.Videos) != 0 {
		t.Errorf("Load() doc = %+v, want empty document", doc)
	}
}

func TestMasterList_SaveRecomputesTotal(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()

	doc := sampleDocument()
	doc.TotalVideos = 99
	if err := m.Save(ctx, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatal(err)
	}
	if got := onDisk["total_videos"]; got != float64(2) {
		t.Errorf("total_videos on disk = %v, want 2", got)
	}

	// A lying total on disk is not trusted either.
	tampered := bytes.Replace(raw, []byte(`"total_videos": 2`), []byte(`"total_videos": 7`), 1)
	if err := os.WriteFile(m.Path(), tampered, 0644); err != nil {
		t.Fatal(err)
	}
	loaded, err := m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(ctx, loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.TotalVideos != len(loaded.Videos) {
		t.Errorf("TotalVideos = %d, want %d", loaded.TotalVideos, len(loaded.Videos))
	}
}

func TestMasterList_RoundTrip(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()

	doc := sampleDocument()
	doc.Videos[0].Categories = []string{"theology"}
	doc.Videos[0].Status = StatusCategorized
	doc.Videos[0].RelevanceScore = intPtr(8)
	doc.Videos[0].KeyTopics = []string{"history"}
	doc.Videos[1].Duration = 754
	doc.Videos[1].TranscriptFile = "data/transcripts/b.vtt"
	doc.Videos[1].TranscriptDownloaded = true
	doc.Videos[1].TranscriptDownloadDate = "2024-03-02"

	if err := m.Save(ctx, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, doc) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", loaded, doc)
	}
}

func TestMasterList_SaveFormatting(t *testing.T) {
	m := newTestMasterList(t)
	doc := sampleDocument()
	doc.Videos[0].Title = "Café <live> & more"

	if err := m.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	content := string(raw)
	if !strings.Contains(content, "Café <live> & more") {
		t.Errorf("non-ASCII or HTML characters were escaped:\n%s", content)
	}
	if !strings.Contains(content, "\n  \"videos\": [") {
		t.Errorf("expected two-space indentation:\n%s", content)
	}
}

func TestMasterList_SaveKeepsBackup(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()

	first := sampleDocument()
	if err := m.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(m.BackupPath()); !os.IsNotExist(err) {
		t.Errorf("backup exists after first save: %v", err)
	}

	second := sampleDocument()
	second.Videos = second.Videos[:1]
	if err := m.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	backup := NewMasterList(m.BackupPath())
	prev, err := backup.Load(ctx)
	if err != nil {
		t.Fatalf("load backup: %v", err)
	}
	if len(prev.Videos) != 2 {
		t.Errorf("backup has %d videos, want 2", len(prev.Videos))
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(m.Path()), ".ytcurate-*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestMasterList_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "lib", "ytcurate", "master.json")
	m := NewMasterList(path)
	ctx := context.Background()

	doc, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	doc, _ = Update(doc, sampleDocument().Videos, fixedNow)
	if err := m.Save(ctx, doc); err != nil {
		t.Fatalf("Save() into a fresh directory error = %v", err)
	}
	loaded, err := m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TotalVideos != 2 {
		t.Errorf("TotalVideos = %d, want 2", loaded.TotalVideos)
	}
}

func TestMasterList_MutateCreatesDirectory(t *testing.T) {
	m := NewMasterList(filepath.Join(t.TempDir(), "fresh", "master.json"))

	found, err := m.LinkTranscript(context.Background(), "a", "a.vtt")
	if err != nil || found {
		t.Errorf("LinkTranscript() on a fresh path = %v, %v; want false, nil", found, err)
	}
}

func TestMasterList_SaveWritesCuratorKeys(t *testing.T) {
	m := newTestMasterList(t)
	if err := m.Save(context.Background(), sampleDocument()); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"categories": []`, `"relevance_score": null`, `"notes": ""`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("saved list lacks %s:\n%s", want, raw)
		}
	}
}

func TestMasterList_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "videos_master.json")
	// A directory in place of the target makes the final rename fail.
	if err := os.MkdirAll(filepath.Join(target, "child"), 0755); err != nil {
		t.Fatal(err)
	}
	m := NewMasterList(target)

	err := m.Save(context.Background(), sampleDocument())
	var storErr *StorageError
	if !errors.As(err, &storErr) {
		t.Fatalf("Save() error = %v, want *StorageError", err)
	}
	if storErr.Op != "write" {
		t.Errorf("Op = %q, want write", storErr.Op)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".ytcurate-*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestMasterList_Backup(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()

	path, err := m.Backup(ctx)
	if err != nil || path != "" {
		t.Fatalf("Backup() with no file = %q, %v; want \"\", nil", path, err)
	}

	if err := m.Save(ctx, sampleDocument()); err != nil {
		t.Fatal(err)
	}
	path, err = m.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	want := m.Path() + ".backup_20240309_143005"
	if path != want {
		t.Errorf("Backup() = %q, want %q", path, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
}

func TestMasterList_LinkTranscript(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()
	if err := m.Save(ctx, sampleDocument()); err != nil {
		t.Fatal(err)
	}

	ok, err := m.LinkTranscript(ctx, "b", "data/transcripts/b.vtt")
	if err != nil || !ok {
		t.Fatalf("LinkTranscript() = %v, %v; want true, nil", ok, err)
	}

	doc, err := m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	v := doc.Videos[doc.Find("b")]
	if v.TranscriptFile != "data/transcripts/b.vtt" || !v.TranscriptDownloaded || v.TranscriptDownloadDate != "2024-03-09" {
		t.Errorf("linked video = %+v", v)
	}
}

func TestMasterList_LinkTranscriptUnknownID(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()
	if err := m.Save(ctx, sampleDocument()); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	infoBefore, _ := os.Stat(m.Path())

	ok, err := m.LinkTranscript(ctx, "missing", "x.vtt")
	if err != nil {
		t.Fatalf("LinkTranscript() error = %v", err)
	}
	if ok {
		t.Error("LinkTranscript() = true for unknown id")
	}

	after, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("master list changed after linking an unknown id")
	}
	infoAfter, _ := os.Stat(m.Path())
	if !infoAfter.ModTime().Equal(infoBefore.ModTime()) {
		t.Error("master list was rewritten after linking an unknown id")
	}
	if _, err := os.Stat(m.BackupPath()); !os.IsNotExist(err) {
		t.Error("backup written for a no-op link")
	}
}

func TestMasterList_TranscriptStats(t *testing.T) {
	m := newTestMasterList(t)
	ctx := context.Background()
	dir := filepath.Join(filepath.Dir(m.Path()), "transcripts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	present := filepath.Join(dir, "a.vtt")
	deleted := filepath.Join(dir, "b.vtt")
	if err := os.WriteFile(present, []byte("WEBVTT\n"), 0644); err != nil {
		t.Fatal(err)
	}

	doc := sampleDocument()
	doc.Videos = append(doc.Videos, NewVideo("c", "Third", "2024-01-03", "", fixedNow))
	doc.Videos[0].TranscriptFile = present
	doc.Videos[0].TranscriptDownloaded = true
	doc.Videos[1].TranscriptFile = deleted
	doc.Videos[1].TranscriptDownloaded = true
	if err := m.Save(ctx, doc); err != nil {
		t.Fatal(err)
	}

	stats, err := m.TranscriptStats(ctx)
	if err != nil {
		t.Fatalf("TranscriptStats() error = %v", err)
	}
	want := TranscriptStats{TotalVideos: 3, WithTranscripts: 2, FilesExist: 1, WithoutTranscripts: 2}
	if stats != want {
		t.Errorf("TranscriptStats() = %+v, want %+v", stats, want)
	}

	missing, err := m.VideosWithoutTranscript(ctx)
	if err != nil {
		t.Fatalf("VideosWithoutTranscript() error = %v", err)
	}
	var ids []string
	for _, v := range missing {
		ids = append(ids, v.VideoID)
	}
	if !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Errorf("VideosWithoutTranscript() ids = %v, want [b c]", ids)
	}
}

func TestMasterList_MutateRefusesCorrupt(t *testing.T) {
	m := newTestMasterList(t)
	if err := os.MkdirAll(filepath.Dir(m.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.Path(), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := m.LinkTranscript(context.Background(), "a", "a.vtt")
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Fatalf("LinkTranscript() error = %v, want ErrStorageCorrupt", err)
	}
	raw, _ := os.ReadFile(m.Path())
	if string(raw) != "garbage" {
		t.Error("corrupt master list was overwritten")
	}
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("é", MaxDescriptionLength+20)
	got := TruncateDescription(long)
	if n := len([]rune(got)); n != MaxDescriptionLength {
		t.Errorf("len = %d runes, want %d", n, MaxDescriptionLength)
	}
	if got := TruncateDescription("short"); got != "short" {
		t.Errorf("TruncateDescription(short) = %q", got)
	}
}
