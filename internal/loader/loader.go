// Package loader bulk-loads per-table CSV files into the database,
// honoring the schema's foreign key dependency order.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/askdb/askdb/internal/database"
)

// insertBatchSize bounds the number of rows per INSERT statement so large
// files do not exceed the server's packet limit.
const insertBatchSize = 500

// TableLoad reports the outcome for one table.
type TableLoad struct {
	Table string `json:"table"`
	File  string `json:"file,omitempty"`
	Rows  int    `json:"rows"`
}

// Loader copies CSV files into existing tables. Only the MySQL dialects are
// supported, matching the banking fixture this tool ships with.
type Loader struct {
	db *database.DB
}

func New(db *database.DB) (*Loader, error) {
	dialect := db.GetConfig().Dialect
	if dialect != "mysql" && dialect != "cloudsqlmysql" {
		return nil, fmt.Errorf("csv loading is only supported for mysql dialects, got %s", dialect)
	}
	return &Loader{db: db}, nil
}

// LoadDirectory matches files named <table>.csv (case-insensitive) against
// the live schema, clears the matched tables in reverse dependency order,
// and loads them in dependency order so foreign key checks hold throughout.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]TableLoad, error) {
	order, err := l.db.DependencyOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dependency order: %w", err)
	}

	files, err := matchCSVFiles(dir, order)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files in %s match a table in the current schema", dir)
	}

	if err := l.clearTables(ctx, order, files); err != nil {
		return nil, err
	}

	var loads []TableLoad
	for _, table := range order {
		path, ok := files[table]
		if !ok {
			continue
		}
		rows, err := l.loadTable(ctx, table, path)
		if err != nil {
			return loads, fmt.Errorf("failed to load %s from %s: %w", table, filepath.Base(path), err)
		}
		log.Printf("INFO: Loaded %d row(s) into %s from %s", rows, table, filepath.Base(path))
		loads = append(loads, TableLoad{Table: table, File: filepath.Base(path), Rows: rows})
	}
	return loads, nil
}

// matchCSVFiles maps table names to CSV paths by file stem.
func matchCSVFiles(dir string, tables []string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV directory %s: %w", dir, err)
	}

	byStem := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		byStem[strings.ToLower(stem)] = filepath.Join(dir, entry.Name())
	}

	matched := make(map[string]string)
	for _, table := range tables {
		if path, ok := byStem[strings.ToLower(table)]; ok {
			matched[table] = path
		}
	}
	return matched, nil
}

// clearTables deletes matched tables child-first so parent rows are never
// removed while referencing rows remain.
func (l *Loader) clearTables(ctx context.Context, order []string, files map[string]string) error {
	tx, err := l.db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clearing transaction: %w", err)
	}
	defer tx.Rollback()

	for i := len(order) - 1; i >= 0; i-- {
		table := order[i]
		if _, ok := files[table]; !ok {
			continue
		}
		stmt := fmt.Sprintf("DELETE FROM %s", l.db.Handler.QuoteIdentifier(table))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (l *Loader) loadTable(ctx context.Context, table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	tx, err := l.db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total := 0
	batch := make([][]string, 0, insertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		stmt, args := l.buildInsert(table, header, batch)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("failed to read CSV record: %w", err)
		}
		batch = append(batch, record)
		if len(batch) >= insertBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	if err := tx.Commit(); err != nil {
		return total, fmt.Errorf("failed to commit load of %s: %w", table, err)
	}
	return total, nil
}

// buildInsert renders a multi-row INSERT. Empty CSV fields become NULL so
// numeric and date columns do not receive empty strings.
func (l *Loader) buildInsert(table string, header []string, batch [][]string) (string, []any) {
	quote := l.db.Handler.QuoteIdentifier
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = quote(name)
	}

	rowPlaceholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(header)), ",") + ")"
	placeholders := make([]string, len(batch))
	args := make([]any, 0, len(batch)*len(header))
	for i, record := range batch {
		placeholders[i] = rowPlaceholders
		for j := range header {
			value := ""
			if j < len(record) {
				value = record[j]
			}
			if value == "" {
				args = append(args, nil)
			} else {
				args = append(args, value)
			}
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quote(table), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return stmt, args
}
