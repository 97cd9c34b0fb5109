// Package source is the filesystem collaborator of the sync engine: it
// discovers the current CSV file, reads a bounded sample for schema
// inference, and streams full files row by row.
//
// Rows handed to callers are always normalized to the header length: short
// rows are right-padded with empty strings, long rows truncated. Field
// values are trimmed of surrounding whitespace.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Options describe how to open and parse one CSV file.
type Options struct {
	// Path of the file to read.
	Path string

	// Separator is the field delimiter; ',' when zero.
	Separator rune

	// Encoding is an IANA/HTML charset name ("latin1", "windows-1252", ...).
	// Empty or "utf-8" reads the file as-is.
	Encoding string
}

func (o Options) separator() rune {
	if o.Separator == 0 {
		return ','
	}
	return o.Separator
}

// open opens the file and wraps it in a charset decoder when the configured
// encoding is not UTF-8.
func (o Options) open() (io.ReadCloser, error) {
	f, err := os.Open(o.Path)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(o.Encoding))
	switch name {
	case "", "utf-8", "utf8":
		return f, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("source: unsupported encoding %q: %w", o.Encoding, err)
	}

	type rc struct {
		io.Reader
		io.Closer
	}
	return &rc{Reader: enc.NewDecoder().Reader(f), Closer: f}, nil
}

func (o Options) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = o.separator()
	cr.FieldsPerRecord = -1 // rows are normalized manually
	cr.LazyQuotes = true
	return cr
}

// readHeader reads and trims the header row, stripping a UTF-8 BOM from the
// first field.
func readHeader(cr *csv.Reader) ([]string, error) {
	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("source: file has no header row")
		}
		return nil, fmt.Errorf("source: read header: %w", err)
	}
	for i := range hdr {
		if i == 0 {
			hdr[i] = strings.TrimPrefix(hdr[i], "\uFEFF")
		}
		hdr[i] = strings.TrimSpace(hdr[i])
	}
	return hdr, nil
}

// normalize pads or truncates rec to width and trims each field.
func normalize(rec []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width; i++ {
		if i < len(rec) {
			out[i] = strings.TrimSpace(rec[i])
		}
	}
	return out
}

// ReadSample returns the header row and up to maxRows normalized data rows.
// It is used for schema inference only and never reads the whole file.
func ReadSample(opt Options, maxRows int) (headers []string, rows [][]string, err error) {
	if maxRows <= 0 {
		maxRows = 10
	}

	rc, err := opt.open()
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	cr := opt.newReader(rc)
	headers, err = readHeader(cr)
	if err != nil {
		return nil, nil, err
	}

	rows = make([][]string, 0, maxRows)
	for len(rows) < maxRows {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Sampling is best-effort; a malformed record does not fail
			// inference.
			continue
		}
		rows = append(rows, normalize(rec, len(headers)))
	}

	return headers, rows, nil
}

// Scan streams every data row of the file through fn, normalized to the
// header length. line is the 1-based line number of the record (the header
// is line 1). A non-nil error from fn aborts the scan and is returned.
//
// Malformed CSV records are reported through onErr (when non-nil) and
// skipped; they never abort the scan.
func Scan(opt Options, fn func(line int, row []string) error, onErr func(line int, err error)) error {
	rc, err := opt.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	cr := opt.newReader(rc)
	cr.ReuseRecord = true

	headers, err := readHeader(cr)
	if err != nil {
		return err
	}

	line := 1
	for {
		line++
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		if err := fn(line, normalize(rec, len(headers))); err != nil {
			return err
		}
	}
}
