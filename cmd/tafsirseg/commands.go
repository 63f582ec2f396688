package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	coreerrors "github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/marker"
	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/core/sqlite"
	"github.com/FocuswithJustin/tafsirseg/core/verse"
	"github.com/FocuswithJustin/tafsirseg/internal/archive"
	"github.com/FocuswithJustin/tafsirseg/internal/batch"
	"github.com/FocuswithJustin/tafsirseg/internal/export"
	"github.com/FocuswithJustin/tafsirseg/internal/logging"
	"github.com/FocuswithJustin/tafsirseg/internal/pages"
	"github.com/FocuswithJustin/tafsirseg/internal/store"
)

// ExtractCmd cuts per-surah documents out of the full commentary.
type ExtractCmd struct {
	Input  string   `arg:"" help:"Full commentary markdown with '# Page N' headers" type:"existingfile"`
	Ranges string   `required:"" help:"JSON file of surah page ranges" type:"existingfile" env:"TAFSIRSEG_RANGES"`
	Out    string   `short:"o" help:"Directory for the numbered surah documents" default:"surahs" env:"TAFSIRSEG_SURAH_DIR"`
	Only   []string `help:"Extract only these surah ids"`
}

func (c *ExtractCmd) Run() error {
	ranges, err := pages.LoadRanges(c.Ranges)
	if err != nil {
		return err
	}
	f, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	lines, err := segment.ReadLines(f)
	f.Close()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Out, 0755); err != nil {
		return err
	}

	ids := ranges.IDs()
	if len(c.Only) > 0 {
		ids = c.Only
	}
	var errs []error
	for _, id := range ids {
		rng, ok := ranges[id]
		if !ok {
			errs = append(errs, coreerrors.NewNotFound("page range", id))
			continue
		}
		logging.Info("extracting surah", "document", id, "name", rng.Name, "first_page", rng.FirstPage, "last_page", rng.LastPage)
		text, err := pages.ExtractLines(lines, rng)
		if err != nil {
			logging.Error("extract failed", "document", id, "error", err)
			errs = append(errs, fmt.Errorf("surah %s: %w", id, err))
			continue
		}
		if err := writeSurah(filepath.Join(c.Out, id+".md"), text); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "%s\t%d lines\n", id, len(text))
	}
	return errors.Join(errs...)
}

func writeSurah(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pages.WriteDocument(f, lines); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SinkFlags selects where segments are written.
type SinkFlags struct {
	Out string `short:"o" help:"Output directory for segment files" default:"segments" env:"TAFSIRSEG_OUT"`
	DB  string `help:"Also store segments in this SQLite database" type:"path" env:"TAFSIRSEG_DB"`
}

// open returns the configured sink and a function releasing it.
func (f SinkFlags) open() (store.Sink, func(), error) {
	dir, err := store.NewDirSink(f.Out)
	if err != nil {
		return nil, nil, err
	}
	if f.DB == "" {
		return dir, func() {}, nil
	}
	db, err := store.OpenSQLite(f.DB)
	if err != nil {
		return nil, nil, err
	}
	return store.MultiSink{dir, db}, func() { db.Close() }, nil
}

// SplitCmd segments a single document.
type SplitCmd struct {
	Path string `arg:"" help:"Numbered surah document" type:"existingfile"`
	ID   string `help:"Document id (defaults to the file name without extension)"`
	SinkFlags
}

func (c *SplitCmd) Run() error {
	sink, closeSink, err := c.open()
	if err != nil {
		return err
	}
	defer closeSink()

	doc := batch.Document{ID: documentID(c.ID, c.Path), Path: c.Path}
	ctx := logging.WithDocument(context.Background(), doc.ID)
	logging.DocumentStarted(ctx, doc.Path)

	res, err := batch.SplitFile(doc)
	if err != nil {
		logging.DocumentFailed(ctx, err)
		return err
	}
	if res.Residue != nil {
		logging.ResidueSkipped(ctx, res.Residue.Ordinal, res.Residue.Verses.String())
	}
	if err := sink.Write(ctx, res); err != nil {
		logging.DocumentFailed(ctx, err)
		return err
	}
	printResult(res)
	return nil
}

// BatchCmd segments every *.md file in a directory.
type BatchCmd struct {
	Dir     string `arg:"" help:"Directory of numbered surah documents" type:"existingdir"`
	Archive string `help:"Pack the output directory into this tar.xz when done" type:"path"`
	SinkFlags
}

func (c *BatchCmd) Run() error {
	docs, err := batch.Discover(c.Dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return coreerrors.NewValidation("dir", "no *.md documents in "+c.Dir)
	}
	sink, closeSink, err := c.open()
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, cancel := signalContext()
	defer cancel()

	runner := &batch.Runner{Sink: sink, Workers: CLI.Workers}
	rep := runner.Run(ctx, docs)
	fmt.Fprintln(out, rep.Summary())
	for id, err := range rep.Failed {
		fmt.Fprintf(out, "  [FAIL] %s: %v\n", id, err)
	}

	if c.Archive != "" && len(rep.Succeeded) > 0 {
		m, err := archive.Pack(c.Out, c.Archive, rep.RunID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Packed %d files into %s\n", len(m.Files), c.Archive)
	}
	return rep.Err()
}

// CheckCmd lists every marker of a document and validates their order.
type CheckCmd struct {
	Paths []string `arg:"" help:"Numbered surah documents" type:"existingfile"`
}

func (c *CheckCmd) Run() error {
	var errs []error
	for _, path := range c.Paths {
		if err := checkDocument(path); err != nil {
			fmt.Fprintf(out, "%s: FAIL: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(out, "%s: OK\n", path)
	}
	return errors.Join(errs...)
}

func checkDocument(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	lines, err := segment.ReadLines(f)
	f.Close()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tTAG\tVERSES\tCITATION")
	var seq []verse.Set
	nonBlank := 0
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonBlank++
		}
		c, ok := marker.Recognize(line)
		if !ok {
			continue
		}
		set, err := verse.Normalize(c.Raw)
		if err != nil {
			tw.Flush()
			return &coreerrors.RecognitionError{LineNumber: i + 1, Line: c.Line, Citation: c.Raw}
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, c.Tag, set.Name(), strings.TrimSpace(c.Raw))
		seq = append(seq, set)
	}
	tw.Flush()

	if len(seq) == 0 {
		return &coreerrors.NoMarkersError{Document: documentID("", path), Empty: nonBlank == 0}
	}
	return verse.ValidateSequence(seq)
}

// PackCmd archives a segment output directory.
type PackCmd struct {
	Dir   string `arg:"" help:"Segment output directory" type:"existingdir"`
	Dest  string `arg:"" help:"Archive path (.tar.xz)" type:"path"`
	RunID string `name:"run-id" help:"Run id recorded in the manifest (default: new UUID)"`
}

func (c *PackCmd) Run() error {
	if !strings.HasSuffix(c.Dest, ".tar.xz") {
		return coreerrors.NewValidation("dest", "archive path must end in .tar.xz")
	}
	runID := c.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	m, err := archive.Pack(c.Dir, c.Dest, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Packed %d files into %s (run %s)\n", len(m.Files), c.Dest, m.RunID)
	return nil
}

// VerifyCmd checks an archive against its manifest.
type VerifyCmd struct {
	Archive string `arg:"" help:"Archive path (.tar.xz or .tar.gz)" type:"existingfile"`
}

func (c *VerifyCmd) Run() error {
	m, err := archive.Verify(c.Archive)
	if m != nil {
		fmt.Fprintf(out, "Archive: %s\n", c.Archive)
		fmt.Fprintf(out, "  Run: %s\n", m.RunID)
		fmt.Fprintf(out, "  Created: %s\n", m.Created.Format(time.RFC3339))
		fmt.Fprintf(out, "  Files: %d\n", len(m.Files))
	}
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return err
	}
	fmt.Fprintln(out, "  [OK] all digests match")
	return nil
}

// ExportCmd renders one document's segments as XML.
type ExportCmd struct {
	Path string `arg:"" help:"Numbered surah document" type:"existingfile"`
	ID   string `help:"Document id (defaults to the file name without extension)"`
	Out  string `short:"o" help:"Output file ('-' for stdout)" default:"-"`
}

func (c *ExportCmd) Run() error {
	res, err := batch.SplitFile(batch.Document{ID: documentID(c.ID, c.Path), Path: c.Path})
	if err != nil {
		return err
	}
	if c.Out == "-" {
		return export.WriteXML(out, res)
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return err
	}
	if err := export.WriteXML(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LookupCmd finds the segment covering a verse in an XML export or database.
type LookupCmd struct {
	Verse int    `arg:"" help:"Verse number"`
	XML   string `name:"xml" help:"XML export to search" type:"existingfile" xor:"source"`
	DB    string `name:"db" help:"SQLite database to search" type:"existingfile" xor:"source"`
	Doc   string `help:"Document id (required with --db)"`
}

func (c *LookupCmd) Run() error {
	if c.Verse < 1 || c.Verse > verse.MaxVerse {
		return coreerrors.NewValidation("verse", fmt.Sprintf("must be between 1 and %d", verse.MaxVerse))
	}
	switch {
	case c.XML != "":
		f, err := os.Open(c.XML)
		if err != nil {
			return err
		}
		defer f.Close()
		seg, err := export.QueryXML(f, c.Verse)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n\n%s\n", seg.Name, seg.Body())
		return nil
	case c.DB != "":
		if c.Doc == "" {
			return coreerrors.NewValidation("doc", "required with --db")
		}
		db, err := store.OpenSQLiteReadOnly(c.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		rec, err := db.Segment(context.Background(), c.Doc, c.Verse)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n\n%s\n", rec.Name, rec.Body)
		return nil
	}
	return coreerrors.NewValidation("source", "one of --xml or --db is required")
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(out, "tafsirseg version %s (sqlite: %s, %s)\n", version, info.Package, info.DriverType)
	return nil
}
