package sqlserver

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/askdb/askdb/internal/database"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return &database.DB{Pool: mockDB, Handler: sqlServerHandler{}}, mock
}

func TestSQLServerListTables(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"TABLE_NAME"}).
		AddRow("accounts").
		AddRow("customers")
	mock.ExpectQuery(`SELECT TABLE_NAME\s+FROM INFORMATION_SCHEMA\.TABLES`).WillReturnRows(rows)

	handler := sqlServerHandler{}
	tables, err := handler.ListTables(context.Background(), db)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(tables) != 2 || tables[0] != "accounts" {
		t.Errorf("Unexpected tables: %v", tables)
	}
}

func TestSQLServerGetForeignKeys(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"column_name", "referenced_table", "referenced_column", "constraint_name"}).
		AddRow("customer_id", "customers", "id", "FK_accounts_customers")
	mock.ExpectQuery(`FROM sys\.foreign_keys fk`).
		WithArgs("accounts").WillReturnRows(rows)

	handler := sqlServerHandler{}
	fks, err := handler.GetForeignKeys(context.Background(), db, "accounts")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	expected := database.ForeignKeyReference{
		Column:           "customer_id",
		ReferencedTable:  "customers",
		ReferencedColumn: "id",
		ConstraintName:   "FK_accounts_customers",
	}
	if len(fks) != 1 || fks[0] != expected {
		t.Errorf("Unexpected foreign keys: %+v", fks)
	}
}

func TestSQLServerQuoteIdentifier(t *testing.T) {
	handler := sqlServerHandler{}
	if got := handler.QuoteIdentifier("customers"); got != "[customers]" {
		t.Errorf("Unexpected quoting: %s", got)
	}
	if got := handler.QuoteIdentifier("weird]name"); got != "[weird]]name]" {
		t.Errorf("Closing brackets must be escaped, got: %s", got)
	}
}
