// Package store writes segmented documents to their destinations: one file
// per segment under a directory keyed by document, or one row per segment in
// SQLite. Every sink writes a document completely or not at all.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/internal/logging"
)

// Sink receives the result of one successfully segmented document.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Write persists every segment of res, keyed by res.Document.
	Write(ctx context.Context, res *segment.Result) error
}

// Pending is a staged document that is not yet visible.
type Pending interface {
	// Commit makes the staged document visible.
	Commit() error
	// Rollback discards the staged document. After Commit it restores the
	// previous output where the sink can; it is a no-op once Close ran.
	Rollback() error
	// Close releases what Rollback would have needed.
	Close() error
}

// Stager is a Sink that can hold a write back until the caller commits it.
type Stager interface {
	Sink
	Stage(ctx context.Context, res *segment.Result) (Pending, error)
}

// MultiSink writes one document to several sinks so that either all of them
// hold it or none do. Every sink is staged before any commits, and commits run
// in order. Only the last sink is never asked to undo a commit, so a sink that
// cannot (SQLite) belongs at the end.
type MultiSink []Sink

// Name implements Sink.
func (m MultiSink) Name() string {
	return "multi"
}

// Write implements Sink.
func (m MultiSink) Write(ctx context.Context, res *segment.Result) error {
	pending := make([]Pending, 0, len(m))
	rollback := func(cause error) error {
		errs := []error{cause}
		for i := len(pending) - 1; i >= 0; i-- {
			if err := pending[i].Rollback(); err != nil {
				logging.WarnContext(ctx, "sink_rollback_failed", "sink", m[i].Name(), "error", err.Error())
				errs = append(errs, fmt.Errorf("%s sink rollback: %w", m[i].Name(), err))
			}
		}
		return errors.Join(errs...)
	}

	for _, s := range m {
		if err := ctx.Err(); err != nil {
			return rollback(err)
		}
		p, err := stage(ctx, s, res)
		if err != nil {
			return rollback(fmt.Errorf("%s sink: %w", s.Name(), err))
		}
		pending = append(pending, p)
	}

	for i, p := range pending {
		if err := p.Commit(); err != nil {
			return rollback(fmt.Errorf("%s sink: %w", m[i].Name(), err))
		}
	}

	logging.DebugContext(ctx, "sinks_committed", "document", res.Document, "sinks", len(pending))

	var errs []error
	for i, p := range pending {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", m[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

func stage(ctx context.Context, s Sink, res *segment.Result) (Pending, error) {
	if st, ok := s.(Stager); ok {
		return st.Stage(ctx, res)
	}
	return &deferredWrite{ctx: ctx, sink: s, res: res}, nil
}

// deferredWrite runs a plain Sink's Write at commit time.
type deferredWrite struct {
	ctx  context.Context
	sink Sink
	res  *segment.Result
}

func (d *deferredWrite) Commit() error   { return d.sink.Write(d.ctx, d.res) }
func (d *deferredWrite) Rollback() error { return nil }
func (d *deferredWrite) Close() error    { return nil }
