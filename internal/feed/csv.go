package feed

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
)

// csvColumns is spec.md §6's line-oriented bar layout: timestamp_ns,symbol,open,high,low,close,volume.
const csvColumns = 7

// CSVSource reads one `<SYMBOL>.csv` file per symbol from a directory. Rows that don't
// parse are skipped and counted rather than raised (spec.md §4.1 failure model).
type CSVSource struct {
	dir       string
	malformed atomic.Int64
}

// NewCSVSource creates a Source backed by per-symbol CSV files under dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// MalformedCount returns the number of rows skipped across every stream opened so far.
func (s *CSVSource) MalformedCount() int64 {
	return s.malformed.Load()
}

func (s *CSVSource) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceNotFound, "reading data directory", err)
	}

	symbols := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}

		symbols = append(symbols, strings.TrimSuffix(entry.Name(), ".csv"))
	}

	return symbols, nil
}

func (s *CSVSource) Open(symbol string) (Stream, error) {
	path := filepath.Join(s.dir, symbol+".csv")

	file, err := os.Open(path)
	if err != nil {
		return nil, errSourceNotFound(symbol)
	}

	stream := &csvStream{source: s, symbol: symbol, path: path, file: file, scanner: bufio.NewScanner(file)}
	stream.skipHeader()

	return stream, nil
}

// csvStream is a forward-only, file-backed Stream. Seek reopens the file and discards
// rows ahead of the target timestamp; CSV has no index to do better.
type csvStream struct {
	source  *CSVSource
	symbol  string
	path    string
	file    *os.File
	scanner *bufio.Scanner
	seq     uint64
	pending *string
}

func (c *csvStream) skipHeader() {
	c.scanner.Scan()
}

func (c *csvStream) Next() (types.Event, bool, error) {
	for {
		line, ok := c.nextLine()
		if !ok {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		bar, ok := c.parseRow(line)
		if !ok {
			c.source.malformed.Add(1)
			continue
		}

		c.seq++

		return types.NewBarEvent(bar, c.seq), true, nil
	}

	if err := c.scanner.Err(); err != nil {
		return types.Event{}, false, errors.Wrap(errors.ErrCodeMalformedRecord, "reading csv stream", err)
	}

	return types.Event{}, false, nil
}

// nextLine returns the next raw row, preferring a line buffered by Seek.
func (c *csvStream) nextLine() (string, bool) {
	if c.pending != nil {
		line := *c.pending
		c.pending = nil

		return line, true
	}

	if !c.scanner.Scan() {
		return "", false
	}

	return c.scanner.Text(), true
}

func (c *csvStream) parseRow(line string) (types.Bar, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != csvColumns {
		return types.Bar{}, false
	}

	tsNanos, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return types.Bar{}, false
	}

	symbol := strings.TrimSpace(fields[1])

	open, err1 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	high, err2 := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	low, err3 := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	closePrice, err4 := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
	volume, err5 := strconv.ParseFloat(strings.TrimSpace(fields[6]), 64)

	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return types.Bar{}, false
	}

	bar := types.Bar{
		Symbol:    symbol,
		Timestamp: time.Unix(0, tsNanos).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Period:    time.Minute,
	}

	if err := bar.Validate(); err != nil {
		return types.Bar{}, false
	}

	return bar, true
}

func (c *csvStream) Seek(t time.Time) error {
	if err := c.file.Close(); err != nil {
		return err
	}

	file, err := os.Open(c.path)
	if err != nil {
		return errSourceNotFound(c.symbol)
	}

	c.file = file
	c.scanner = bufio.NewScanner(file)
	c.pending = nil
	c.skipHeader()

	for c.scanner.Scan() {
		line := c.scanner.Text()

		bar, ok := c.parseRow(strings.TrimSpace(line))
		if !ok {
			c.source.malformed.Add(1)
			continue
		}

		if !bar.Timestamp.Before(t) {
			c.pending = &line

			break
		}
	}

	return nil
}

func (c *csvStream) Close() error {
	return c.file.Close()
}
