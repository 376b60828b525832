// Command sniff inspects delimited files without running a cleaning job.
//
// For each file it prints the detected encoding, the detected delimiter, the
// number of sampled rows, and the type each column would be given by
// inference. Use it to preview what a cleaning job would do to a file, or to
// pin down why detection picked a surprising format.
//
// Exit codes:
//   - 0: every file inspected.
//   - 1: at least one file could not be read or parsed.
//   - 2: bad usage.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"csvclean/internal/clean"
	"csvclean/internal/sniff"
	"csvclean/internal/table"
)

type deps struct {
	Stdout io.Writer
	Stderr io.Writer
}

// runConfig holds the parsed flags and positional file paths.
type runConfig struct {
	Encoding string
	Rows     int
	JSON     bool

	Files []string
}

// fileReport is the inspection result for one file.
type fileReport struct {
	File               string       `json:"file"`
	Encoding           string       `json:"encoding"`
	Delimiter          string       `json:"delimiter"`
	DelimiterConfident bool         `json:"delimiterConfident"`
	Rows               int          `json:"rows"`
	SkippedRows        int          `json:"skippedRows,omitempty"`
	Columns            []columnInfo `json:"columns"`
}

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func main() {
	os.Exit(run(os.Args[1:], deps{Stdout: os.Stdout, Stderr: os.Stderr}))
}

func run(args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	failed := 0
	for _, path := range cfg.Files {
		rep, err := inspect(path, cfg)
		if err != nil {
			failed++
			fmt.Fprintf(d.Stderr, "%s: %v\n", path, err)
			continue
		}
		if cfg.JSON {
			enc := json.NewEncoder(d.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				failed++
				fmt.Fprintf(d.Stderr, "%s: encode report: %v\n", path, err)
			}
			continue
		}
		printReport(d.Stdout, rep)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("sniff", flag.ContinueOnError)

	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)

	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage: %s [flags] file [file ...]\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.Encoding, "encoding", "", "Skip encoding detection and decode with this tag (utf-8, utf-8-sig, latin-1)")
	fs.IntVar(&cfg.Rows, "rows", 200, "Rows sampled for type classification")
	fs.BoolVar(&cfg.JSON, "json", false, "Emit one JSON object per file instead of text")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if cfg.Rows <= 0 {
		return runConfig{}, errors.New("-rows must be > 0")
	}

	cfg.Files = fs.Args()
	if len(cfg.Files) == 0 {
		fs.Usage()
		return runConfig{}, fmt.Errorf("missing file argument\n\n%s", usageBuf.String())
	}

	return cfg, nil
}

// inspect detects the file's format and classifies a bounded row sample.
func inspect(path string, cfg runConfig) (fileReport, error) {
	encodingTag := cfg.Encoding
	if encodingTag == "" {
		tag, err := sniff.DetectEncoding(path)
		if err != nil {
			return fileReport{}, err
		}
		encodingTag = tag
	}

	delim, confident, err := sniff.DetectDelimiter(path, encodingTag)
	if err != nil {
		return fileReport{}, err
	}

	enc, err := sniff.Resolve(encodingTag)
	if err != nil {
		return fileReport{}, err
	}

	delimRune, _ := utf8.DecodeRuneInString(delim)
	tbl, skipped, err := table.Load(path, enc, delimRune, true)
	if err != nil {
		return fileReport{}, err
	}

	// Classification works on a bounded prefix so huge files stay cheap to
	// inspect.
	for ci := range tbl.Columns {
		if len(tbl.Columns[ci].Cells) > cfg.Rows {
			tbl.Columns[ci].Cells = tbl.Columns[ci].Cells[:cfg.Rows]
		}
	}
	clean.InferTypes(tbl)

	rep := fileReport{
		File:               path,
		Encoding:           encodingTag,
		Delimiter:          delim,
		DelimiterConfident: confident,
		Rows:               tbl.RowCount(),
		SkippedRows:        skipped,
		Columns:            make([]columnInfo, 0, len(tbl.Columns)),
	}
	for _, col := range tbl.Columns {
		rep.Columns = append(rep.Columns, columnInfo{
			Name: col.Name,
			Type: columnKind(col.Cells).String(),
		})
	}
	return rep, nil
}

// columnKind reports the kind inference settled on: the kind of the first
// non-null cell, or null for an all-null column.
func columnKind(cells []table.Cell) table.Kind {
	for _, c := range cells {
		if !c.IsNull() {
			return c.Kind
		}
	}
	return table.KindNull
}

func printReport(w io.Writer, rep fileReport) {
	delim := rep.Delimiter
	if delim == "\t" {
		delim = `\t`
	}
	suffix := ""
	if !rep.DelimiterConfident {
		suffix = " (fallback)"
	}
	fmt.Fprintf(w, "%s: encoding=%s delimiter=%s%s rows=%d", rep.File, rep.Encoding, delim, suffix, rep.Rows)
	if rep.SkippedRows > 0 {
		fmt.Fprintf(w, " skipped=%d", rep.SkippedRows)
	}
	fmt.Fprintln(w)
	for _, col := range rep.Columns {
		fmt.Fprintf(w, "  %s: %s\n", col.Name, col.Type)
	}
}
