package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ytcurate/config"
	"ytcurate/storage"
)

const flatDump = `{
  "id": "UCabcdefghijklmnopqrstuv",
  "channel_id": "UCabcdefghijklmnopqrstuv",
  "entries": [
    {"id": "vid0001", "title": "First", "upload_date": "20240302"},
    {"id": "vid0002", "title": "Second", "upload_date": "20240301"}
  ]
}`

type testEnv struct {
	dir        string
	configPath string
	masterFile string
}

// newTestEnv writes a settings file using a fake yt-dlp for both methods.
func newTestEnv(t *testing.T, extra ...string) testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp is a shell script")
	}
	dir := t.TempDir()
	dump := filepath.Join(dir, "dump.json")
	if err := os.WriteFile(dump, []byte(flatDump), 0644); err != nil {
		t.Fatal(err)
	}
	exe := filepath.Join(dir, "yt-dlp")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\ncat '"+dump+"'\n"), 0755); err != nil {
		t.Fatal(err)
	}

	env := testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.env"),
		masterFile: filepath.Join(dir, "data", "videos_master.json"),
	}
	lines := append([]string{
		"MASTER_LIST_METHOD=ytdlp",
		"TRANSCRIPT_METHOD=ytdlp",
		"YOUTUBE_API_KEY=AIzaSecretKey",
		"YTDLP_PATH=" + exe,
		"MASTER_FILE=" + env.masterFile,
		"TRANSCRIPT_DIR=" + filepath.Join(dir, "transcripts"),
	}, extra...)
	if err := os.WriteFile(env.configPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return env
}

// run executes the command tree with the given arguments and stdin.
func run(t *testing.T, env testEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	a := &app{logger: zerolog.Nop()}
	root := newRootCommand(a)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", env.configPath, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestUpdateCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := run(t, env, "", "update")
	if err != nil {
		t.Fatalf("update error = %v", err)
	}
	if !strings.Contains(out, "Added 2 new videos (2 in master list)") || !strings.Contains(out, "vid0001") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, env, "", "update")
	if err != nil {
		t.Fatalf("second update error = %v", err)
	}
	if !strings.Contains(out, "No new videos (2 in master list)") {
		t.Errorf("second output = %q", out)
	}
}

func TestUpdateCommand_UnknownMethod(t *testing.T) {
	env := newTestEnv(t, "MASTER_LIST_METHOD=rss")

	_, err := run(t, env, "", "update")
	var ve *config.ValidationError
	if !errors.As(err, &ve) || ve.Key != config.KeyMasterListMethod {
		t.Errorf("update error = %v, want validation error on %s", err, config.KeyMasterListMethod)
	}
	if _, err := os.Stat(env.masterFile); !os.IsNotExist(err) {
		t.Error("master list written despite invalid settings")
	}
}

func TestRebuildCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "", "update"); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, env, "yes\n", "rebuild"); !errors.Is(err, errConfirmationRequired) {
		t.Errorf("rebuild without --force on a pipe: error = %v, want errConfirmationRequired", err)
	}

	out, err := run(t, env, "", "rebuild", "--force")
	if err != nil {
		t.Fatalf("rebuild --force error = %v", err)
	}
	if !strings.Contains(out, "Rebuilt master list with 2 videos") || !strings.Contains(out, "Backup: ") {
		t.Errorf("output = %q", out)
	}
}

func TestVideosCommands(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "", "update"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, env, "", "videos", "list-uncategorized")
	if err != nil || !strings.Contains(out, "2 uncategorized videos") {
		t.Fatalf("list-uncategorized = %q, %v", out, err)
	}

	if _, err := run(t, env, "", "videos", "categorize", "vid0001", "--categories", "theology, debate", "--relevance", "7", "--notes", "good"); err != nil {
		t.Fatalf("categorize error = %v", err)
	}
	if _, err := run(t, env, "", "videos", "priority", "vid0002", "--category", "apologetics"); err != nil {
		t.Fatalf("priority error = %v", err)
	}
	if _, err := run(t, env, "", "videos", "categorize", "missing", "--categories", "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("categorize unknown video: error = %v, want ErrNotFound", err)
	}
	if _, err := run(t, env, "", "videos", "categorize", "vid0001", "--categories", "x", "--relevance", "11"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("categorize with score 11: error = %v, want ErrInvalidInput", err)
	}

	out, err = run(t, env, "", "videos", "report", "--json")
	if err != nil {
		t.Fatalf("report error = %v", err)
	}
	var report storage.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out)
	}
	if report.TotalVideos != 2 || report.ScoredVideos != 2 || report.AverageRelevance != 8.5 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Categories) != 3 {
		t.Errorf("categories = %+v", report.Categories)
	}
}

func TestTranscriptsStatsCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "", "update"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, env, "", "transcripts", "stats", "--json")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	var stats storage.TranscriptStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats is not JSON: %v", err)
	}
	if stats.TotalVideos != 2 || stats.WithoutTranscripts != 2 {
		t.Errorf("stats = %+v", stats)
	}

	out, err = run(t, env, "", "transcripts", "list-missing")
	if err != nil || !strings.Contains(out, "2 videos without transcripts") {
		t.Errorf("list-missing = %q, %v", out, err)
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "new", "config.env")

	if _, err := run(t, env, "", "config", "init", path); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := config.Load(path); err != nil {
		t.Errorf("template does not load: %v", err)
	}
	if _, err := run(t, env, "", "config", "init", path); !errors.Is(err, config.ErrConfigExists) {
		t.Errorf("second init error = %v, want ErrConfigExists", err)
	}

	out, err := run(t, env, "", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "AIzaSecretKey") {
		t.Error("config show printed the API key")
	}
	if !strings.Contains(out, "MASTER_LIST_METHOD") || !strings.Contains(out, "ytdlp") {
		t.Errorf("config show = %q", out)
	}
}

func TestVideosInteractiveCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "", "update"); err != nil {
		t.Fatal(err)
	}

	input := "x\nc\ntheology, debate\n7\nworth a look\ns\n"
	out, err := run(t, env, input, "videos", "interactive")
	if err != nil {
		t.Fatalf("interactive error = %v", err)
	}
	for _, want := range []string{"Please enter c, s or q", "Categorized vid0001: theology, debate", "Categorized 1 of 2 videos"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	out, err = run(t, env, "", "videos", "list-uncategorized")
	if err != nil || !strings.Contains(out, "1 uncategorized videos") || strings.Contains(out, "vid0001") {
		t.Errorf("list-uncategorized = %q, %v", out, err)
	}
}

func TestCategorizeInteractively(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "", "update"); err != nil {
		t.Fatal(err)
	}
	store := storage.NewMasterList(env.masterFile)
	ctx := context.Background()
	videos, err := store.ListUncategorized(ctx)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"quit at once", "q\n", 0},
		{"end of input", "", 0},
		{"no categories", "c\n\n", 0},
		{"score out of range", "c\ntheology\n11\n\ns\n", 0},
		{"score not a number", "c\ntheology\nhigh\n\nq\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := categorizeInteractively(ctx, strings.NewReader(tt.input), &out, store, videos, nil)
			if err != nil || got != tt.want {
				t.Errorf("categorizeInteractively() = %d, %v; want %d\n%s", got, err, tt.want, out.String())
			}
		})
	}
}

func TestVideosMigrateCommand(t *testing.T) {
	env := newTestEnv(t)
	legacy := `{"videos": [{"video_id": "old1", "title": "Hand picked"}]}`
	if err := os.MkdirAll(filepath.Dir(env.masterFile), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.masterFile, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, env, "", "videos", "migrate")
	if err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if !strings.Contains(out, "Updated 1 videos (1 in master list)") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, env, "", "videos", "list-uncategorized")
	if err != nil || !strings.Contains(out, "No uncategorized videos") {
		t.Errorf("list-uncategorized after migrate = %q, %v", out, err)
	}
}

func TestVideosMigrateCommand_NoList(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "", "videos", "migrate"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("migrate without a list: error = %v, want ErrNotFound", err)
	}
}

func TestIsTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stream")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		name   string
		stream any
	}{
		{"reader", strings.NewReader("yes\n")},
		{"buffer", &bytes.Buffer{}},
		{"regular file", f},
	}
	for _, tt := range tests {
		if isTerminal(tt.stream) {
			t.Errorf("isTerminal(%s) = true", tt.name)
		}
	}
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"Y\n", true},
		{"no\n", false},
		{"maybe\nn\n", false},
		{"maybe\n y \n", true},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := askYesNo(strings.NewReader(tt.input), &out, "? ")
		if err != nil || got != tt.want {
			t.Errorf("askYesNo(%q) = %v, %v, want %v", tt.input, got, err, tt.want)
		}
	}
}
