package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/askdb/askdb/internal/config"
)

// DBAdapter defines the interface for database operations needed by the
// query generator and the API surface.
type DBAdapter interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, tableName string) (TableInfo, error)
	Snapshot(ctx context.Context) (Snapshot, error)
	DependencyOrder(ctx context.Context) ([]string, error)
	ExecuteSelect(ctx context.Context, query string) (*ResultSet, error)
	Ping(ctx context.Context) error
	Close() error
	GetConfig() config.DatabaseConfig
}

var _ DBAdapter = (*DB)(nil)

// DB holds the database connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
}

// ColumnInfo holds basic information about a database column.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ForeignKeyReference describes a single foreign key column reference.
type ForeignKeyReference struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	ConstraintName   string `json:"constraint_name,omitempty"`
}

// TableInfo is the reflected metadata for a single table. Names are exactly
// what the live database reports.
type TableInfo struct {
	Name        string                `json:"name"`
	Columns     []ColumnInfo          `json:"columns"`
	PrimaryKeys []string              `json:"primary_keys"`
	ForeignKeys []ForeignKeyReference `json:"foreign_keys"`
}

// Snapshot maps table names to their reflected metadata. It is built fresh
// on each call; callers own the value and no invalidation is tracked.
type Snapshot map[string]TableInfo

// TableNames returns the snapshot's table names in alphabetical order.
func (s Snapshot) TableNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResultSet holds the rows returned by a SELECT statement. Columns preserve
// the statement's column order; row values are keyed by column name.
type ResultSet struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// TableNotFoundError reports a table missing from the live schema.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q does not exist in the current schema", e.Table)
}

// CyclicSchemaError reports a cycle in the foreign key graph, which makes a
// dependency order undefined.
type CyclicSchemaError struct {
	Tables []string
}

func (e *CyclicSchemaError) Error() string {
	return fmt.Sprintf("foreign key graph contains a cycle involving tables: %s", strings.Join(e.Tables, ", "))
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		log.Printf("WARN: Dialect handler for '%s' is being overwritten.", dialect)
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	return handler, nil
}

var dbConfig *config.DatabaseConfig

// SetConfig stores the database configuration resolved from flags.
func SetConfig(cfg *config.DatabaseConfig) {
	dbConfig = cfg
}

// GetConfig returns the database configuration resolved from flags.
func GetConfig() *config.DatabaseConfig {
	return dbConfig
}

func New(cfg config.DatabaseConfig) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create database pool for dialect %s: %w", cfg.Dialect, err)
	}

	ctx := context.Background()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed) for dialect %s: %w", cfg.Dialect, err)
	}

	return &DB{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (db *DB) GetConfig() config.DatabaseConfig {
	return db.Config
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	log.Println("WARN: Attempted to close a nil database connection pool.")
	return nil
}

func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler.ListTables(ctx, db)
}

// DescribeTable reflects a single table's columns, primary keys, and foreign
// keys. A table with no reflected columns is reported as missing.
func (db *DB) DescribeTable(ctx context.Context, tableName string) (TableInfo, error) {
	if db.Handler == nil {
		return TableInfo{}, fmt.Errorf("dialect handler not initialized")
	}

	columns, err := db.Handler.ListColumns(ctx, db, tableName)
	if err != nil {
		return TableInfo{}, fmt.Errorf("error describing columns of %s: %w", tableName, err)
	}
	if len(columns) == 0 {
		return TableInfo{}, &TableNotFoundError{Table: tableName}
	}

	primaryKeys, err := db.Handler.GetPrimaryKeys(ctx, db, tableName)
	if err != nil {
		return TableInfo{}, fmt.Errorf("error describing primary keys of %s: %w", tableName, err)
	}

	foreignKeys, err := db.Handler.GetForeignKeys(ctx, db, tableName)
	if err != nil {
		return TableInfo{}, fmt.Errorf("error describing foreign keys of %s: %w", tableName, err)
	}

	return TableInfo{
		Name:        tableName,
		Columns:     columns,
		PrimaryKeys: primaryKeys,
		ForeignKeys: foreignKeys,
	}, nil
}

// Snapshot reflects the whole schema. Every call re-reads live metadata.
func (db *DB) Snapshot(ctx context.Context) (Snapshot, error) {
	tables, err := db.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	snapshot := make(Snapshot, len(tables))
	for _, table := range tables {
		info, err := db.DescribeTable(ctx, table)
		if err != nil {
			return nil, err
		}
		snapshot[table] = info
	}
	return snapshot, nil
}

// DependencyOrder returns the snapshot's tables ordered so that every table
// appears after all tables it references via foreign key. Ties break
// alphabetically; a cyclic foreign key graph is an error.
func (db *DB) DependencyOrder(ctx context.Context) ([]string, error) {
	snapshot, err := db.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.DependencyOrder()
}

// DependencyOrder computes a topological order over the snapshot's foreign
// key graph. Self-references are ignored; references to tables outside the
// snapshot are ignored.
func (s Snapshot) DependencyOrder() ([]string, error) {
	inDegree := make(map[string]int, len(s))
	dependents := make(map[string][]string, len(s))

	for name := range s {
		inDegree[name] = 0
	}
	for name, info := range s {
		seen := make(map[string]bool)
		for _, fk := range info.ForeignKeys {
			ref := fk.ReferencedTable
			if ref == name || seen[ref] {
				continue
			}
			if _, ok := s[ref]; !ok {
				continue
			}
			seen[ref] = true
			inDegree[name]++
			dependents[ref] = append(dependents[ref], name)
		}
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]string, 0, len(s))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)

		released := false
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(ordered) != len(s) {
		var cyclic []string
		for name, degree := range inDegree {
			if degree > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, &CyclicSchemaError{Tables: cyclic}
	}
	return ordered, nil
}

// ExecuteSelect runs a read statement and materializes all rows. It applies
// no row limit and no transaction; callers bound execution time via ctx.
func (db *DB) ExecuteSelect(ctx context.Context, query string) (*ResultSet, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database connection pool is not initialized")
	}

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing statement: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading result columns: %w", err)
	}

	result := &ResultSet{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("error scanning result row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}
	return result, nil
}

// normalizeValue makes driver values JSON-friendly. MySQL returns []byte for
// text and decimal columns.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

// DialectHandler is implemented once per supported database engine.
type DialectHandler interface {
	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
	ListTables(ctx context.Context, db *DB) ([]string, error)
	ListColumns(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error)
	GetPrimaryKeys(ctx context.Context, db *DB, tableName string) ([]string, error)
	GetForeignKeys(ctx context.Context, db *DB, tableName string) ([]ForeignKeyReference, error)
}
