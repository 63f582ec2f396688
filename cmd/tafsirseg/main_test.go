package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	coreerrors "github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/internal/logging"
)

// Test helper functions

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := out
	out = &buf
	logging.InitLoggerTo(&bytes.Buffer{}, logging.LevelError, logging.FormatText)
	t.Cleanup(func() {
		out = orig
		logging.InitLogger(logging.LevelInfo, logging.FormatText)
	})
	return &buf
}

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func markerLine(tag int, verses string) string {
	return fmt.Sprintf("[%d]: سورة البقرة، الآية: ﴿%s﴾", tag, verses)
}

func numberedDoc(lines ...string) string {
	return strings.Join(lines, "\n\n") + "\n"
}

var goodDoc = numberedDoc(
	"[1]: # سورة البقرة",
	"[2]: وهي مدنية",
	markerLine(3, "١"),
	"[4]: commentary one",
	markerLine(5, "٢ - ٣"),
	"[6]: commentary two",
	"[7]: سورة آل عمران، الآية: ﴿١﴾",
	"[8]: next surah",
)

var gapDoc = numberedDoc(markerLine(1, "١"), "[2]: a", markerLine(3, "٣"), "[4]: b")

const commentary = `# Page 1
# سورة الفاتحة
سورة الفاتحة، الآية: ﴿١﴾
fatiha commentary
# Page 2
# سورة البقرة
سورة البقرة، الآية: ﴿١﴾
baqarah commentary
# Page 3
1
سورة البقرة، الآية: ﴿٢﴾
more
# Page 4
`

func TestExtractThenSplit(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	input := createTestFile(t, dir, "tafsir.md", commentary)
	ranges := createTestFile(t, dir, "ranges.json", `{
		"1": {"name": "الفاتحة", "first_page": 1, "last_page": 1},
		"2": {"name": "البقرة", "first_page": 2, "last_page": 3}
	}`)
	surahs := filepath.Join(dir, "surahs")

	cmd := &ExtractCmd{Input: input, Ranges: ranges, Out: surahs}
	if err := cmd.Run(); err != nil {
		t.Fatalf("ExtractCmd.Run() error: %v", err)
	}
	if !strings.Contains(buf.String(), "2\t5 lines") {
		t.Errorf("output = %q", buf.String())
	}

	data, err := os.ReadFile(filepath.Join(surahs, "2.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "[1]: # سورة البقرة\n\n[2]: سورة البقرة، الآية: ﴿١﴾\n\n") {
		t.Errorf("2.md = %q", data)
	}

	segs := filepath.Join(dir, "segments")
	split := &SplitCmd{Path: filepath.Join(surahs, "2.md"), SinkFlags: SinkFlags{Out: segs}}
	if err := split.Run(); err != nil {
		t.Fatalf("SplitCmd.Run() error: %v", err)
	}
	for _, name := range []string{"1.md", "2.md"} {
		if _, err := os.Stat(filepath.Join(segs, "2", name)); err != nil {
			t.Errorf("segment %s missing: %v", name, err)
		}
	}
}

func TestExtractUnknownSurah(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	cmd := &ExtractCmd{
		Input:  createTestFile(t, dir, "tafsir.md", commentary),
		Ranges: createTestFile(t, dir, "ranges.json", `{"1": {"first_page": 1, "last_page": 1}}`),
		Out:    filepath.Join(dir, "surahs"),
		Only:   []string{"1", "9"},
	}
	err := cmd.Run()
	if !errors.Is(err, coreerrors.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "surahs", "1.md")); err != nil {
		t.Errorf("surah 1 not written: %v", err)
	}
}

func TestSplitCmdWithDatabase(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	doc := createTestFile(t, dir, "2.md", goodDoc)
	db := filepath.Join(dir, "segments.db")

	split := &SplitCmd{Path: doc, SinkFlags: SinkFlags{Out: filepath.Join(dir, "out"), DB: db}}
	if err := split.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "Document 2: 2 segments + intro (residue 1 dropped)") {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	lookup := &LookupCmd{Verse: 3, DB: db, Doc: "2"}
	if err := lookup.Run(); err != nil {
		t.Fatalf("LookupCmd.Run() error: %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "# 2-3\n\n") || !strings.Contains(got, "commentary two") {
		t.Errorf("lookup output = %q", got)
	}
}

func TestSplitCmdFailureWritesNothing(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	split := &SplitCmd{Path: createTestFile(t, dir, "4.md", gapDoc), SinkFlags: SinkFlags{Out: out}}
	if err := split.Run(); !errors.Is(err, coreerrors.ErrOrdering) {
		t.Fatalf("Run() error = %v, want ErrOrdering", err)
	}
	if _, err := os.Stat(filepath.Join(out, "4")); !os.IsNotExist(err) {
		t.Errorf("output written for failed document")
	}
}

func TestBatchPackVerify(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	os.MkdirAll(in, 0755)
	createTestFile(t, in, "2.md", goodDoc)
	createTestFile(t, in, "4.md", gapDoc)

	segs := filepath.Join(dir, "segments")
	arc := filepath.Join(dir, "segments.tar.xz")
	CLI.Workers = 2
	t.Cleanup(func() { CLI.Workers = 0 })

	b := &BatchCmd{Dir: in, Archive: arc, SinkFlags: SinkFlags{Out: segs}}
	err := b.Run()
	if !errors.Is(err, coreerrors.ErrOrdering) {
		t.Fatalf("BatchCmd.Run() error = %v, want ErrOrdering for document 4", err)
	}
	got := buf.String()
	for _, want := range []string{"1 succeeded, 1 failed, 2 segments", "[FAIL] 4:", "Packed 3 files"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	buf.Reset()
	if err := (&VerifyCmd{Archive: arc}).Run(); err != nil {
		t.Fatalf("VerifyCmd.Run() error: %v", err)
	}
	if !strings.Contains(buf.String(), "[OK] all digests match") {
		t.Errorf("verify output = %q", buf.String())
	}
}

func TestPackCmdRejectsExtension(t *testing.T) {
	captureOutput(t)
	err := (&PackCmd{Dir: t.TempDir(), Dest: "out.zip"}).Run()
	if !errors.Is(err, coreerrors.ErrInvalidInput) {
		t.Errorf("Run() error = %v, want ErrInvalidInput", err)
	}
}

func TestCheckCmd(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	good := createTestFile(t, dir, "2.md", goodDoc)
	gap := createTestFile(t, dir, "4.md", gapDoc)

	err := (&CheckCmd{Paths: []string{good, gap}}).Run()
	if !errors.Is(err, coreerrors.ErrOrdering) {
		t.Fatalf("Run() error = %v, want ErrOrdering", err)
	}
	got := buf.String()
	for _, want := range []string{good + ": OK", gap + ": FAIL", "2-3"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestCheckCmdNoMarkers(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantEmpty bool
		wantMsg   string
	}{
		{"prose only", numberedDoc("[1]: prose", "[2]: more prose"), false, "no markers found in document 5"},
		{"blank lines only", "\n   \n\t\n", true, "document 5 is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			path := createTestFile(t, t.TempDir(), "5.md", tt.content)
			err := (&CheckCmd{Paths: []string{path}}).Run()

			var nm *coreerrors.NoMarkersError
			if !errors.As(err, &nm) {
				t.Fatalf("Run() error = %v, want NoMarkersError", err)
			}
			if nm.Empty != tt.wantEmpty {
				t.Errorf("Empty = %v, want %v", nm.Empty, tt.wantEmpty)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Run() error = %q, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestExportAndLookupXML(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	doc := createTestFile(t, dir, "2.md", goodDoc)
	xmlPath := filepath.Join(dir, "2.xml")

	if err := (&ExportCmd{Path: doc, Out: xmlPath}).Run(); err != nil {
		t.Fatalf("ExportCmd.Run() error: %v", err)
	}

	if err := (&LookupCmd{Verse: 1, XML: xmlPath}).Run(); err != nil {
		t.Fatalf("LookupCmd.Run() error: %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "# 1\n\n") {
		t.Errorf("lookup output = %q", got)
	}

	if err := (&LookupCmd{Verse: 9, XML: xmlPath}).Run(); !errors.Is(err, coreerrors.ErrNotFound) {
		t.Errorf("lookup of uncited verse error = %v, want ErrNotFound", err)
	}
	if err := (&LookupCmd{Verse: 300, XML: xmlPath}).Run(); !errors.Is(err, coreerrors.ErrInvalidInput) {
		t.Errorf("lookup of verse 300 error = %v, want ErrInvalidInput", err)
	}
	if err := (&LookupCmd{Verse: 1}).Run(); !errors.Is(err, coreerrors.ErrInvalidInput) {
		t.Errorf("lookup without source error = %v, want ErrInvalidInput", err)
	}
}

func TestExportToStdout(t *testing.T) {
	buf := captureOutput(t)
	doc := createTestFile(t, t.TempDir(), "2.md", goodDoc)
	if err := (&ExportCmd{Path: doc, ID: "baqarah", Out: "-"}).Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(buf.String(), `<commentary document="baqarah"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestVersionCmd(t *testing.T) {
	buf := captureOutput(t)
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "tafsirseg version "+version) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("TAFSIRSEG_WORKERS", "3")
	t.Setenv("TAFSIRSEG_LOG_FORMAT", "json")

	parser, err := kong.New(&CLI, kong.Name("tafsirseg"))
	if err != nil {
		t.Fatalf("kong.New() error: %v", err)
	}
	if _, err := parser.Parse([]string{"version"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	t.Cleanup(func() { CLI.Workers = 0; CLI.LogFormat = "text" })

	if CLI.Workers != 3 || CLI.LogFormat != "json" {
		t.Errorf("Workers = %d, LogFormat = %q", CLI.Workers, CLI.LogFormat)
	}
}

func TestInitLoggingRejectsUnknownLevel(t *testing.T) {
	CLI.LogLevel = "loud"
	t.Cleanup(func() { CLI.LogLevel = "info" })
	if err := initLogging(); err == nil {
		t.Error("initLogging() accepted an unknown level")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, ".env", "TAFSIRSEG_TEST_DOTENV=from-file\n")
	chdir(t, dir)
	t.Cleanup(func() { os.Unsetenv("TAFSIRSEG_TEST_DOTENV") })

	if err := loadDotEnv(); err != nil {
		t.Fatalf("loadDotEnv() error: %v", err)
	}
	if got := os.Getenv("TAFSIRSEG_TEST_DOTENV"); got != "from-file" {
		t.Errorf("TAFSIRSEG_TEST_DOTENV = %q", got)
	}

	chdir(t, t.TempDir())
	if err := loadDotEnv(); err != nil {
		t.Errorf("missing .env should not be an error: %v", err)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q): %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}
