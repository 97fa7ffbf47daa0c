// Package tabular converts uploaded delimited-text files into tables.
//
// Files are decoded from a configured legacy encoding (ISO-8859-1 unless
// configured otherwise), split on a configured or guessed delimiter, and
// keyed by the header row. A structural error anywhere in a file fails that
// file, and one failing file fails the whole batch.
package tabular

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// AutoDelimiter asks the parser to guess the delimiter per file.
const AutoDelimiter = "auto"

// ErrEmptyFile is returned for a file without a header row.
var ErrEmptyFile = errors.New("empty file")

// Config selects the input encoding and delimiter.
type Config struct {
	Encoding  string // IANA name, e.g. "ISO-8859-1" or "UTF-8"
	Delimiter string // "auto", `\t`, or a single character
}

// Parser implements core.Parser and core.Capability.
type Parser struct {
	cfg   Config
	delim rune // 0 means guess

	enc    atomic.Pointer[encoding.Encoding]
	loaded atomic.Bool
}

// New creates a parser. Load must succeed before Parse is called.
func New(cfg Config) (*Parser, error) {
	delim, err := parseDelimiter(cfg.Delimiter)
	if err != nil {
		return nil, err
	}
	return &Parser{cfg: cfg, delim: delim}, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "", AutoDelimiter:
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("tabular: invalid delimiter %q", s)
	}
	return r[0], nil
}

// Name implements core.Capability.
func (p *Parser) Name() string { return "table parser" }

// Loaded implements core.Capability.
func (p *Parser) Loaded() bool { return p.loaded.Load() }

// Load resolves the configured encoding.
func (p *Parser) Load(ctx context.Context) error {
	enc, err := resolveEncoding(p.cfg.Encoding)
	if err != nil {
		return err
	}
	p.enc.Store(&enc)
	p.loaded.Store(true)
	slog.Debug("table parser loaded", "encoding", p.cfg.Encoding, "delimiter", p.cfg.Delimiter)
	return nil
}

func resolveEncoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		return charmap.ISO8859_1, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("tabular: encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("tabular: encoding %q is not supported", name)
	}
	return enc, nil
}

// Parse parses every file concurrently. The first failure cancels the rest
// and is returned as a *core.FileParseError naming that file.
func (p *Parser) Parse(ctx context.Context, files []core.UploadedFile) ([]core.ParsedTable, error) {
	encp := p.enc.Load()
	if encp == nil {
		return nil, errors.New("tabular: parser not loaded")
	}
	enc := *encp

	start := time.Now()
	tables := make([]core.ParsedTable, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			t, err := p.parseFile(gctx, enc, f)
			if err != nil {
				return &core.FileParseError{FileName: f.Name, Err: err}
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("files parsed", "files", len(files), "duration_ms", time.Since(start).Milliseconds())
	return tables, nil
}

// checkEvery is how many records are read between context checks.
const checkEvery = 1000

func (p *Parser) parseFile(ctx context.Context, enc encoding.Encoding, f core.UploadedFile) (core.ParsedTable, error) {
	decoded := transform.NewReader(skipBOM(f.Open()), enc.NewDecoder())
	br := bufio.NewReaderSize(decoded, maxHeaderPeek)

	delim := p.delim
	if delim == 0 {
		delim = guessDelimiter(br)
	}

	r := csv.NewReader(br)
	r.Comma = delim

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return core.ParsedTable{}, ErrEmptyFile
	}
	if err != nil {
		return core.ParsedTable{}, fmt.Errorf("read header: %w", err)
	}
	fields := uniqueFieldNames(header)

	var rows []map[string]string
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return core.ParsedTable{}, err
			}
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.ParsedTable{}, err
		}
		if isEmptyRecord(record) {
			continue
		}

		row := make(map[string]string, len(fields))
		for i, name := range fields {
			row[name] = record[i]
		}
		rows = append(rows, row)
	}

	t := core.NewParsedTable(f.Name, fields, rows)
	if err := t.Validate(); err != nil {
		return core.ParsedTable{}, err
	}
	return t, nil
}

// uniqueFieldNames names blank headers by position and suffixes repeated
// names with _1, _2 and so on.
func uniqueFieldNames(header []string) []string {
	seen := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			name = "field_" + strconv.Itoa(i+1)
		}
		candidate := name
		for n := 1; seen[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
