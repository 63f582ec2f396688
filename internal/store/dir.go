package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/internal/logging"
	"github.com/FocuswithJustin/tafsirseg/internal/validation"
)

// FileExt is the extension of every segment file.
const FileExt = ".md"

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// DirSink writes <root>/<document>/<segment>.md files.
type DirSink struct {
	root string
}

// NewDirSink creates the root directory if needed.
func NewDirSink(root string) (*DirSink, error) {
	if err := validation.ValidatePath(root); err != nil {
		return nil, fmt.Errorf("invalid output root: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewIO("create", root, err)
	}
	return &DirSink{root: root}, nil
}

// Name implements Sink.
func (s *DirSink) Name() string {
	return "dir"
}

// Root returns the output root directory.
func (s *DirSink) Root() string {
	return s.root
}

// DocumentDir returns the directory holding a document's segments.
func (s *DirSink) DocumentDir(doc string) string {
	return filepath.Join(s.root, doc)
}

// Write stages every segment in a hidden directory next to the target and
// renames it into place, replacing an earlier output for the same document.
func (s *DirSink) Write(ctx context.Context, res *segment.Result) error {
	p, err := s.Stage(ctx, res)
	if err != nil {
		return err
	}
	if err := p.Commit(); err != nil {
		_ = p.Rollback()
		return err
	}
	return p.Close()
}

// Stage implements Stager. The staged directory is hidden until Commit.
func (s *DirSink) Stage(ctx context.Context, res *segment.Result) (Pending, error) {
	if err := validation.ValidateDocumentID(res.Document); err != nil {
		return nil, fmt.Errorf("document id %q: %w", res.Document, err)
	}

	stage, err := os.MkdirTemp(s.root, ".stage-"+res.Document+"-*")
	if err != nil {
		return nil, errors.NewIO("create staging directory in", s.root, err)
	}
	p := &dirPending{final: s.DocumentDir(res.Document), stage: stage}
	if err := s.fill(ctx, stage, res); err != nil {
		_ = p.Rollback()
		return nil, err
	}
	return p, nil
}

func (s *DirSink) fill(ctx context.Context, stage string, res *segment.Result) error {
	if err := os.Chmod(stage, 0755); err != nil {
		return errors.NewIO("chmod", stage, err)
	}
	for _, seg := range res.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(stage, seg.Name+FileExt)
		if err := os.WriteFile(path, []byte(seg.Body()+"\n"), 0644); err != nil {
			return errors.NewIO("write", path, err)
		}
		logging.SegmentWritten(ctx, s.Name(), seg.Name)
	}
	return nil
}

// dirPending swaps a staged directory into place. The replaced output is kept
// beside it until Close so that Rollback can put it back.
type dirPending struct {
	final     string
	stage     string
	old       string
	committed bool
	closed    bool
}

func (p *dirPending) Commit() error {
	if _, err := os.Stat(p.final); err == nil {
		p.old = p.stage + ".old"
		if err := osRename(p.final, p.old); err != nil {
			p.old = ""
			return errors.NewIO("move aside", p.final, err)
		}
	}
	if err := osRename(p.stage, p.final); err != nil {
		if p.old != "" {
			_ = osRename(p.old, p.final)
			p.old = ""
		}
		return errors.NewIO("rename", p.final, err)
	}
	p.committed = true
	return nil
}

func (p *dirPending) Rollback() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if !p.committed {
		return os.RemoveAll(p.stage)
	}
	if err := os.RemoveAll(p.final); err != nil {
		return errors.NewIO("remove", p.final, err)
	}
	if p.old != "" {
		if err := osRename(p.old, p.final); err != nil {
			return errors.NewIO("restore", p.final, err)
		}
	}
	return nil
}

func (p *dirPending) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if !p.committed {
		return os.RemoveAll(p.stage)
	}
	if p.old != "" {
		if err := os.RemoveAll(p.old); err != nil {
			return errors.NewIO("remove", p.old, err)
		}
	}
	return nil
}

// ReadSegment returns the stored body of one segment, without the trailing newline.
func (s *DirSink) ReadSegment(doc, name string) (string, error) {
	path := filepath.Join(s.DocumentDir(doc), name+FileExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound("segment", doc+"/"+name)
		}
		return "", errors.NewIO("read", path, err)
	}
	if n := len(data); n > 0 && data[n-1] == '\n' {
		data = data[:n-1]
	}
	return string(data), nil
}
