package feed

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/kestrel-quant/backtest/internal/logger"
	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
)

// SQLRow is one row of an ad hoc ExecuteSQL result, column name to scanned value.
type SQLRow struct {
	Values map[string]any
}

// DuckDBSource backs a feed with an embedded DuckDB database loaded from a Parquet
// file, grounded directly on the teacher's DuckDBDataSource. This is the one place in
// the codebase that keeps the teacher's SQL-backed-state idiom, applied to the
// read-only feed side instead of the (now in-memory) accounting side.
type DuckDBSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSource opens (or creates) a DuckDB database at path.
func NewDuckDBSource(path string, log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "opening duckdb database", err)
	}

	return &DuckDBSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// LoadParquet creates (or replaces) the `bars` view from a Parquet file of
// timestamp/symbol/open/high/low/close/volume columns.
func (d *DuckDBSource) LoadParquet(path string) error {
	if _, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "dropping existing view", err)
	}

	query := fmt.Sprintf(`CREATE VIEW bars AS SELECT * FROM read_parquet('%s');`, path)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "creating bars view", err)
	}

	return nil
}

func (d *DuckDBSource) Symbols() ([]string, error) {
	rows, err := d.db.Query(`SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "listing symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "scanning symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

func (d *DuckDBSource) Open(symbol string) (Stream, error) {
	var count int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM bars WHERE symbol = $1`, symbol).Scan(&count); err != nil || count == 0 {
		return nil, errSourceNotFound(symbol)
	}

	query, args, err := d.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "building range query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errSourceNotFound(symbol)
	}

	return &duckDBStream{rows: rows}, nil
}

// ExecuteSQL runs an ad hoc query against the loaded bars, for strategies or tooling
// that need range queries squirrel doesn't directly express.
func (d *DuckDBSource) ExecuteSQL(query string, params ...any) ([]SQLRow, error) {
	d.logger.Debug("executing feed sql query")

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "executing sql", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "reading columns", err)
	}

	var results []SQLRow

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "scanning row", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}

		results = append(results, SQLRow{Values: rowMap})
	}

	return results, rows.Err()
}

// Close releases the underlying database handle.
func (d *DuckDBSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

// duckDBStream wraps a single *sql.Rows cursor over one symbol's bars.
type duckDBStream struct {
	rows *sql.Rows
	seq  uint64
}

func (s *duckDBStream) Next() (types.Event, bool, error) {
	if !s.rows.Next() {
		return types.Event{}, false, s.rows.Err()
	}

	var (
		timestamp                      time.Time
		symbol                         string
		open, high, low, close, volume float64
	)

	if err := s.rows.Scan(&timestamp, &symbol, &open, &high, &low, &close, &volume); err != nil {
		return types.Event{}, false, errors.Wrap(errors.ErrCodeMalformedRecord, "scanning bar row", err)
	}

	bar := types.Bar{
		Symbol:    symbol,
		Timestamp: timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Period:    time.Minute,
	}

	s.seq++

	return types.NewBarEvent(bar, s.seq), true, nil
}

// Seek is unsupported on a forward cursor; callers needing to rewind should re-Open.
func (s *duckDBStream) Seek(t time.Time) error {
	return errors.New(errors.ErrCodeInvalidState, "duckdb stream does not support seek, re-open instead")
}

func (s *duckDBStream) Close() error {
	return s.rows.Close()
}
