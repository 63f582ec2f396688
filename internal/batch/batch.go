// Package batch segments many documents concurrently. Documents are
// independent: each is read, segmented and written on its own, and a
// failure in one is recorded without stopping the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	coreerrors "github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/internal/logging"
	"github.com/FocuswithJustin/tafsirseg/internal/store"
	"github.com/FocuswithJustin/tafsirseg/internal/validation"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Document is one input file.
type Document struct {
	ID   string
	Path string
}

// Discover lists the *.md files directly under dir as documents, ordered by path.
func Discover(dir string) ([]Document, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	docs := make([]Document, 0, len(matches))
	for _, p := range matches {
		docs = append(docs, Document{ID: validation.DocumentIDFromPath(p), Path: p})
	}
	return docs, nil
}

// Report summarizes a run.
type Report struct {
	RunID          string
	Duration       time.Duration
	Succeeded      []string
	Failed         map[string]error
	Segments       int
	ResidueDropped []string

	mu sync.Mutex
}

// Err returns nil when every document succeeded, otherwise one error naming
// each failed document.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	errs := make([]error, len(ids))
	for i, id := range ids {
		errs[i] = coreerrors.Wrap(r.Failed[id], "document "+id)
	}
	return errors.Join(errs...)
}

// Runner segments documents and hands each result to Sink. A nil Sink
// segments without writing.
type Runner struct {
	Sink    store.Sink
	Workers int
}

// Run processes docs with at most Workers documents in flight. Each
// document is handled sequentially by one goroutine. Cancelling ctx marks
// the documents not yet started as failed.
func (r *Runner) Run(ctx context.Context, docs []Document) *Report {
	start := time.Now()
	rep := &Report{RunID: uuid.New().String(), Failed: map[string]error{}}
	ctx = logging.WithRunID(ctx, rep.RunID)

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logging.InfoContext(ctx, "batch_started", "documents", len(docs), "workers", workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			dctx := logging.WithDocument(ctx, doc.ID)
			res, err := r.process(dctx, doc)
			rep.record(dctx, doc, res, err)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(rep.Succeeded)
	sort.Strings(rep.ResidueDropped)
	rep.Duration = time.Since(start)
	logging.InfoContext(ctx, "batch_done",
		"succeeded", len(rep.Succeeded),
		"failed", len(rep.Failed),
		"segments", rep.Segments,
		"duration_ms", rep.Duration.Milliseconds())
	return rep
}

func (r *Runner) process(ctx context.Context, doc Document) (*segment.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	logging.DocumentStarted(ctx, doc.Path)

	res, err := SplitFile(doc)
	if err != nil {
		return nil, err
	}
	if res.Residue != nil {
		logging.ResidueSkipped(ctx, res.Residue.Ordinal, res.Residue.Verses.String())
	}
	if r.Sink != nil {
		if err := r.Sink.Write(ctx, res); err != nil {
			return nil, err
		}
	}
	logging.DocumentDone(ctx, len(res.Segments), res.Intro != nil, time.Since(start))
	return res, nil
}

func (rep *Report) record(ctx context.Context, doc Document, res *segment.Result, err error) {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if err != nil {
		logging.DocumentFailed(ctx, err, failureAttrs(doc, err)...)
		rep.Failed[doc.ID] = err
		return
	}
	rep.Succeeded = append(rep.Succeeded, doc.ID)
	rep.Segments += len(res.Segments)
	if res.Residue != nil {
		rep.ResidueDropped = append(rep.ResidueDropped, doc.ID)
	}
}

// failureAttrs points the log at the offending marker when err carries one.
func failureAttrs(doc Document, err error) []any {
	attrs := []any{"path", doc.Path}
	var re *coreerrors.RecognitionError
	if coreerrors.As(err, &re) {
		attrs = append(attrs, "line", re.LineNumber)
	}
	var oe *coreerrors.OrderingError
	if coreerrors.As(err, &oe) {
		attrs = append(attrs, "marker", oe.CurrentOrdinal)
	}
	return attrs
}

// SplitFile reads and segments one document file.
func SplitFile(doc Document) (*segment.Result, error) {
	if err := validation.ValidateDocumentFile(doc.Path); err != nil {
		return nil, err
	}
	f, err := os.Open(doc.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := segment.SplitReader(doc.ID, f)
	if err != nil {
		return nil, err
	}
	res.Source = doc.Path
	return res, nil
}

// Summary renders a one-line human readable report.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d succeeded, %d failed, %d segments", r.RunID, len(r.Succeeded), len(r.Failed), r.Segments)
	if len(r.ResidueDropped) > 0 {
		fmt.Fprintf(&b, ", residue dropped in %s", strings.Join(r.ResidueDropped, ","))
	}
	return b.String()
}
