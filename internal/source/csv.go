// Package source reads the raw tables the pipeline consumes: census and
// election CSV exports, redistricting weights and polling files.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/ridingcast/internal/normalize"
)

const (
	EncodingUTF8    = "utf-8"
	EncodingLatin1  = "latin1"
	EncodingWin1252 = "windows-1252"
)

// ErrEncoding is returned for an unsupported encoding name.
var ErrEncoding = errors.New("unsupported encoding")

// Options controls CSV decoding.
type Options struct {
	// Encoding of the file. Empty means UTF-8. Statistics Canada census
	// profiles ship as Latin-1.
	Encoding string `yaml:"encoding"`
	// Delimiter overrides sniffing from the header line.
	Delimiter rune `yaml:"-"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "_", "-")) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrEncoding, encoding)
	}
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab in the
// header line, preferring comma.
func sniffDelimiter(header []byte) rune {
	best, bestCount := ',', bytes.Count(header, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(header, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// Each streams the rows of a CSV file to fn as field maps keyed by header.
// Short rows leave their trailing fields empty.
func Each(path string, opts Options, fn func(normalize.Row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := EachReader(f, opts, fn); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// EachReader is Each over an open reader.
func EachReader(r io.Reader, opts Options, fn func(normalize.Row) error) error {
	// the BOM is checked on raw bytes; a single-byte decoder would turn it
	// into three ordinary characters
	raw := bufio.NewReader(r)
	if head, err := raw.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := raw.Discard(len(utf8BOM)); err != nil {
			return err
		}
	}

	dec, err := decoder(raw, opts.Encoding)
	if err != nil {
		return err
	}
	br := bufio.NewReaderSize(dec, 64*1024)

	delim := opts.Delimiter
	if delim == 0 {
		line, _ := br.Peek(br.Size())
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		delim = sniffDelimiter(line)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		row := make(normalize.Row, len(names))
		for i, name := range names {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ReadCSV loads a whole CSV file into memory.
func ReadCSV(path string, opts Options) ([]normalize.Row, error) {
	var rows []normalize.Row
	err := Each(path, opts, func(row normalize.Row) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
