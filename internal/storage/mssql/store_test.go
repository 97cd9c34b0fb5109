package mssql

import (
	"strings"
	"testing"

	"csvsync/internal/schema"
)

func testSpec() schema.TableSpec {
	return schema.TableSpec{
		Name: "imported_data",
		Columns: []schema.ColumnSpec{
			{Name: "order_id", Type: schema.TypeInteger},
			{Name: "customer", Type: schema.TypeText, Length: 200},
			{Name: "amount", Type: schema.TypeDecimal, Precision: 10, Scale: 2},
			{Name: "active", Type: schema.TypeBoolean},
			{Name: "ordered_on", Type: schema.TypeDate},
		},
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(testSpec())
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}

	for _, want := range []string{
		"IF OBJECT_ID(N'imported_data', N'U') IS NULL CREATE TABLE [imported_data]",
		"[id] BIGINT IDENTITY(1,1) PRIMARY KEY",
		"[order_id] BIGINT",
		"[customer] NVARCHAR(200)",
		"[amount] DECIMAL(10,2)",
		"[active] BIT",
		"[ordered_on] DATE",
		"[row_hash] CHAR(64) NOT NULL UNIQUE",
		"[imported_at] DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("DDL missing %q:\n%s", want, ddl)
		}
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	got := buildInsertSQL("t", []string{"a", "b", "row_hash"})
	want := "IF NOT EXISTS (SELECT 1 FROM [t] WHERE [row_hash] = @p3) " +
		"INSERT INTO [t] ([a], [b], [row_hash]) VALUES (@p1, @p2, @p3)"
	if got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestMsIdentEscaping(t *testing.T) {
	t.Parallel()

	if got := msIdent("we]ird"); got != "[we]]ird]" {
		t.Fatalf("msIdent = %q", got)
	}
}
