package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const lockTimeout = 5 * time.Second

// BackupTimestampLayout names explicit rebuild backups: <path>.backup_<timestamp>.
const BackupTimestampLayout = "20060102_150405"

// MasterList reads and writes the master list JSON file.
//
// Nothing is cached between calls: every operation re-reads the file, and
// read-modify-write operations hold an advisory lock on <path>.lock.
type MasterList struct {
	path       string
	channelURL string
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a MasterList.
type Option func(*MasterList)

// WithChannelURL sets the channel locator written into newly created documents.
func WithChannelURL(channelURL string) Option {
	return func(m *MasterList) { m.channelURL = channelURL }
}

// WithClock overrides the time source used for dates and backup names.
func WithClock(now func() time.Time) Option {
	return func(m *MasterList) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *MasterList) { m.logger = logger }
}

// NewMasterList creates a store for the master list at path.
func NewMasterList(path string, opts ...Option) *MasterList {
	m := &MasterList{
		path:   path,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the master list file path.
func (m *MasterList) Path() string { return m.path }

// BackupPath returns the path of the rolling backup written before every save.
func (m *MasterList) BackupPath() string { return m.path + ".backup" }

// Now returns the store's current time.
func (m *MasterList) Now() time.Time { return m.now() }

// Load reads the master list.
//
// A missing file yields an empty document and no error. A file that cannot be
// decoded yields an empty document together with an error wrapping
// ErrStorageCorrupt, so update callers may log and continue while rebuild
// callers treat it as having nothing to preserve.
func (m *MasterList) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocument(m.channelURL), nil
		}
		return nil, &StorageError{Op: "read", Entity: "master list", ID: m.path, Err: err}
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return NewDocument(m.channelURL), &StorageError{
			Op:     "read",
			Entity: "master list",
			ID:     m.path,
			Err:    fmt.Errorf("%w: %v", ErrStorageCorrupt, err),
		}
	}
	if doc.Videos == nil {
		doc.Videos = []Video{}
	}
	if doc.ChannelURL == "" {
		doc.ChannelURL = m.channelURL
	}
	return doc, nil
}

// Save writes doc to disk. TotalVideos is recomputed and nil category lists
// become empty first.
//
// The current file, if any, is copied to BackupPath, then the new content is
// written to a temporary file and renamed over the target. If the target has
// gone missing after a failed write, the backup is copied back.
func (m *MasterList) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := NewFileLock(m.path)
	if err := lock.Lock(lockTimeout); err != nil {
		return err
	}
	defer lock.Unlock()

	return m.save(doc)
}

func (m *MasterList) save(doc *Document) error {
	if doc.Videos == nil {
		doc.Videos = []Video{}
	}
	for i := range doc.Videos {
		if doc.Videos[i].Categories == nil {
			doc.Videos[i].Categories = []string{}
		}
	}
	doc.TotalVideos = len(doc.Videos)

	data, err := encodeDocument(doc)
	if err != nil {
		return &StorageError{Op: "write", Entity: "master list", ID: m.path, Err: err}
	}

	if fileExists(m.path) {
		if err := copyFile(m.path, m.BackupPath()); err != nil {
			return &StorageError{Op: "backup", Entity: "master list", ID: m.path, Err: err}
		}
	}

	if err := WriteFileAtomic(m.path, data); err != nil {
		m.restoreBackup()
		return &StorageError{Op: "write", Entity: "master list", ID: m.path, Err: err}
	}

	m.logger.Debug().
		Str("path", m.path).
		Int("total_videos", doc.TotalVideos).
		Msg("master list saved")
	return nil
}

func (m *MasterList) restoreBackup() {
	if fileExists(m.path) || !fileExists(m.BackupPath()) {
		return
	}
	if err := copyFile(m.BackupPath(), m.path); err != nil {
		m.logger.Error().Err(err).Str("path", m.path).Msg("restore master list from backup")
		return
	}
	m.logger.Warn().Str("path", m.path).Msg("master list restored from backup")
}

// Backup copies the current master list to <path>.backup_<timestamp> and
// returns the backup path. It returns "" when there is nothing to back up.
func (m *MasterList) Backup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !fileExists(m.path) {
		return "", nil
	}
	dst := m.path + ".backup_" + m.now().Format(BackupTimestampLayout)
	if err := copyFile(m.path, dst); err != nil {
		return "", &StorageError{Op: "backup", Entity: "master list", ID: dst, Err: err}
	}
	return dst, nil
}

// Mutate runs fn against the current document under the file lock and saves
// the result when fn reports a change. A corrupt file is never overwritten.
func (m *MasterList) Mutate(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	lock := NewFileLock(m.path)
	if err := lock.Lock(lockTimeout); err != nil {
		return err
	}
	defer lock.Unlock()

	doc, err := m.Load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	return m.save(doc)
}

// LinkTranscript records file as the transcript of videoID and saves the
// master list. It returns false without writing when the video is unknown.
func (m *MasterList) LinkTranscript(ctx context.Context, videoID, file string) (bool, error) {
	found := false
	err := m.Mutate(ctx, func(doc *Document) (bool, error) {
		i := doc.Find(videoID)
		if i < 0 {
			return false, nil
		}
		found = true
		v := &doc.Videos[i]
		v.TranscriptFile = file
		v.TranscriptDownloaded = true
		v.TranscriptDownloadDate = m.now().Format(DateLayout)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// TranscriptStats reports transcript coverage, checking linked files on disk.
func (m *MasterList) TranscriptStats(ctx context.Context) (TranscriptStats, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return TranscriptStats{}, err
	}
	return ComputeTranscriptStats(doc), nil
}

// VideosWithoutTranscript lists videos whose transcript is unlinked or whose
// linked file no longer exists.
func (m *MasterList) VideosWithoutTranscript(ctx context.Context) ([]Video, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return MissingTranscripts(doc), nil
}

// ComputeTranscriptStats derives TranscriptStats from doc and the filesystem.
func ComputeTranscriptStats(doc *Document) TranscriptStats {
	stats := TranscriptStats{TotalVideos: len(doc.Videos)}
	for _, v := range doc.Videos {
		if v.TranscriptFile == "" {
			continue
		}
		stats.WithTranscripts++
		if fileExists(v.TranscriptFile) {
			stats.FilesExist++
		}
	}
	stats.WithoutTranscripts = stats.TotalVideos - stats.FilesExist
	return stats
}

// MissingTranscripts returns the videos of doc lacking a transcript on disk.
func MissingTranscripts(doc *Document) []Video {
	var out []Video
	for _, v := range doc.Videos {
		if v.TranscriptFile == "" || !fileExists(v.TranscriptFile) {
			out = append(out, v)
		}
	}
	return out
}

func encodeDocument(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
