// Command tafsirseg splits Arabic Quran commentary into per-verse segments.
//
// The pipeline has two stages: extract cuts per-surah documents out of the
// full commentary by page range, and split (or batch, for a directory)
// segments those documents into one file or row per verse group.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/internal/logging"
	"github.com/FocuswithJustin/tafsirseg/internal/validation"
)

const version = "0.2.0"

// out receives command output; logs go to stderr.
var out io.Writer = os.Stdout

// CLI defines the command-line interface for tafsirseg.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" env:"TAFSIRSEG_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" env:"TAFSIRSEG_LOG_FORMAT"`
	Workers   int    `name:"workers" short:"w" help:"Documents segmented in parallel (0 = number of CPUs)" default:"0" env:"TAFSIRSEG_WORKERS"`

	Extract ExtractCmd `cmd:"" help:"Cut per-surah documents out of the full commentary"`
	Split   SplitCmd   `cmd:"" help:"Segment one surah document"`
	Batch   BatchCmd   `cmd:"" help:"Segment every document in a directory"`
	Check   CheckCmd   `cmd:"" help:"List markers and validate citation order without writing"`
	Pack    PackCmd    `cmd:"" help:"Archive a segment output directory as tar.xz"`
	Verify  VerifyCmd  `cmd:"" help:"Verify an archive against its manifest"`
	Export  ExportCmd  `cmd:"" help:"Export one document's segments as XML"`
	Lookup  LookupCmd  `cmd:"" help:"Print the segment that covers a verse"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// loadDotEnv reads .env from the working directory. A missing file is fine.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func initLogging() error {
	level, err := logging.ParseLevel(CLI.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(CLI.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// signalContext is cancelled on interrupt so batch runs stop taking new documents.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// documentID resolves the id flag, defaulting to the file's base name.
func documentID(id, path string) string {
	if id != "" {
		return id
	}
	return validation.DocumentIDFromPath(path)
}

func printResult(res *segment.Result) {
	fmt.Fprintf(out, "Document %s: %d segments", res.Document, len(res.Segments))
	if res.Intro != nil {
		fmt.Fprint(out, " + intro")
	}
	if res.Residue != nil {
		fmt.Fprintf(out, " (residue %s dropped)", res.Residue.Verses.Name())
	}
	fmt.Fprintln(out)
}

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	ctx := kong.Parse(&CLI,
		kong.Name("tafsirseg"),
		kong.Description("Verse-range segmentation for Quran commentary"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(initLogging())
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
