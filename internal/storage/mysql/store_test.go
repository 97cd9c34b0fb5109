package mysql

import (
	"context"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvsync/internal/schema"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db}, mock
}

func sampleSpec() schema.TableSpec {
	return schema.TableSpec{
		Name: "imported_data",
		Columns: []schema.ColumnSpec{
			{Name: "order_id", Type: schema.TypeInteger},
			{Name: "customer", Type: schema.TypeText, Length: 50},
			{Name: "amount", Type: schema.TypeDecimal, Precision: 10, Scale: 2},
			{Name: "ordered_on", Type: schema.TypeDate},
		},
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(sampleSpec())
	require.NoError(t, err)

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS `imported_data`",
		"`id` BIGINT AUTO_INCREMENT PRIMARY KEY",
		"`order_id` BIGINT",
		"`customer` VARCHAR(50)",
		"`amount` DECIMAL(10,2)",
		"`ordered_on` DATE",
		"`row_hash` CHAR(64) NOT NULL",
		"`imported_at` TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
		"UNIQUE KEY `uniq_row_hash` (`row_hash`)",
		"ENGINE=InnoDB",
	} {
		assert.Contains(t, ddl, want)
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("t", []string{"a", "row_hash"}, [][]any{
		{"1", "hash1"},
		{nil, "hash2"},
	})

	assert.Equal(t, "INSERT IGNORE INTO `t` (`a`, `row_hash`) VALUES (?,?), (?,?)", q)
	assert.Equal(t, []any{"1", "hash1", nil, "hash2"}, args)
}

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `imported_data`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureTable(context.Background(), sampleSpec()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFingerprints(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT `row_hash` FROM `imported_data`").
		WillReturnRows(sqlmock.NewRows([]string{"row_hash"}).
			AddRow(strings.Repeat("a", 64)).
			AddRow(strings.Repeat("b", 64)))

	got, err := s.Fingerprints(context.Background(), "imported_data")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	_, ok := got[strings.Repeat("a", 64)]
	assert.True(t, ok)
}

func TestFingerprints_MissingTableIsEmptySet(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT `row_hash` FROM `new_table`").
		WillReturnError(&mysql.MySQLError{Number: errNoSuchTable, Message: "table doesn't exist"})

	got, err := s.Fingerprints(context.Background(), "new_table")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertIgnoringDuplicates_CountsOnlyInserted(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	rows := [][]any{{"1", "h1"}, {"2", "h2"}, {"3", "h3"}}

	// One of the three rows collides on row_hash; MySQL reports 2 affected.
	mock.ExpectExec("INSERT IGNORE INTO `t`").
		WithArgs("1", "h1", "2", "h2", "3", "h3").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.InsertIgnoringDuplicates(context.Background(), "t", []string{"a", "row_hash"}, rows)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestInsertIgnoringDuplicates_EmptyBatch(t *testing.T) {
	t.Parallel()

	s, _ := newMockStore(t)
	n, err := s.InsertIgnoringDuplicates(context.Background(), "t", []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTableExists(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.tables").
		WithArgs("imported_data").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := s.TableExists(context.Background(), "imported_data")
	require.NoError(t, err)
	assert.True(t, ok)
}
