package sqlcounter

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

func newMockConn(t *testing.T, table string, dialect Dialect) (*Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewConn(db, table, dialect, time.Second, &mockLogger{}), mock
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "values", want: `"values"`},
		{in: `we"ird`, want: `"we""ird"`},
		{in: `"; DROP TABLE x; --`, want: `"""; DROP TABLE x; --"`},
		{in: "", want: `""`},
	}
	for _, tt := range tests {
		if got := QuoteIdentifier(tt.in); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewConn_DefaultTable(t *testing.T) {
	c := NewConn(nil, "", SQLite, 0, nil)
	if c.Table() != DefaultTableName {
		t.Fatalf("expected default table %q, got %q", DefaultTableName, c.Table())
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		seed    string
	}{
		{
			name:    "sqlite",
			dialect: SQLite,
			seed:    `INSERT INTO "values" (value) SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM "values")`,
		},
		{
			name:    "mysql",
			dialect: MySQL,
			seed:    `INSERT INTO "values" (value) SELECT 0 FROM DUAL WHERE NOT EXISTS (SELECT 1 FROM "values")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConn(nil, "values", tt.dialect, 0, nil)
			if got := c.seedSQL(); got != tt.seed {
				t.Fatalf("seedSQL() = %s, want %s", got, tt.seed)
			}
			if got := c.createTableSQL(); got != `CREATE TABLE IF NOT EXISTS "values" (value BIGINT NOT NULL)` {
				t.Fatalf("unexpected create statement %s", got)
			}
		})
	}
}

func TestPrimitives_Init(t *testing.T) {
	c, mock := newMockConn(t, "values", PostgreSQL)
	mock.ExpectExec(regexp.QuoteMeta(c.createTableSQL())).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(c.seedSQL())).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := (Primitives{}).Init(context.Background(), c); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sqlmock expectations: %v", err)
	}
}

func TestPrimitives_InitCreateFails(t *testing.T) {
	c, mock := newMockConn(t, "values", PostgreSQL)
	boom := errors.New("permission denied")
	mock.ExpectExec(regexp.QuoteMeta(c.createTableSQL())).WillReturnError(boom)

	err := (Primitives{}).Init(context.Background(), c)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestPrimitives_Get(t *testing.T) {
	c, mock := newMockConn(t, "values", PostgreSQL)
	mock.ExpectQuery(regexp.QuoteMeta(c.selectSQL())).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(41)))

	v, err := (Primitives{}).Get(context.Background(), c)
	if err != nil || v != 41 {
		t.Fatalf("Get() = %d, %v; want 41, nil", v, err)
	}
}

func TestPrimitives_GetEmptyTable(t *testing.T) {
	c, mock := newMockConn(t, "values", PostgreSQL)
	mock.ExpectQuery(regexp.QuoteMeta(c.selectSQL())).WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := (Primitives{}).Get(context.Background(), c)
	if !errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestPrimitives_MissingTableIsNotInitialized(t *testing.T) {
	c, mock := newMockConn(t, "values", SQLite)
	missing := errors.New("SQL logic error: no such table: values (1)")
	mock.ExpectQuery(regexp.QuoteMeta(c.selectSQL())).WillReturnError(missing)
	mock.ExpectExec(regexp.QuoteMeta(c.incrementSQL())).WillReturnError(missing)

	if _, err := (Primitives{}).Get(context.Background(), c); !errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("Get() expected ErrNotInitialized, got %v", err)
	}
	if err := (Primitives{}).Set(context.Background(), c, 1); !errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("Set() expected ErrNotInitialized, got %v", err)
	}
}

func TestPrimitives_OtherErrorsPassThrough(t *testing.T) {
	c, mock := newMockConn(t, "values", PostgreSQL)
	boom := errors.New("connection reset by peer")
	mock.ExpectQuery(regexp.QuoteMeta(c.selectSQL())).WillReturnError(boom)

	_, err := (Primitives{}).Get(context.Background(), c)
	if !errors.Is(err, boom) || errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestPrimitives_SetIncrementsIgnoringValue(t *testing.T) {
	c, mock := newMockConn(t, `odd"name`, MySQL)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "odd""name" SET value = value + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := (Primitives{}).Set(context.Background(), c, 1000); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sqlmock expectations: %v", err)
	}
}

func TestPrimitives_DisposeClosesDB(t *testing.T) {
	c, mock := newMockConn(t, "values", SQLite)
	mock.ExpectClose()

	if err := (Primitives{}).Dispose(context.Background(), c); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sqlmock expectations: %v", err)
	}
	if _, err := c.DB().Exec("SELECT 1"); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestPrimitives_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	c := NewConn(db, "values", SQLite, 0, &mockLogger{})

	mock.ExpectPing()
	if err := (Primitives{}).Ping(context.Background(), c); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	if err := (Primitives{}).Ping(context.Background(), c); err == nil {
		t.Fatal("expected ping failure")
	}
}

func TestConfigurePool_ZeroLimitsKeepIdleConnection(t *testing.T) {
	// sqlmock serves a single connection: dropping it from the idle pool
	// would make the next statement fail to reconnect.
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	ConfigurePool(db, Pool{})

	c := NewConn(db, "values", PostgreSQL, 0, &mockLogger{})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM "values"`)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(4)))
	v, err := (Primitives{}).Get(context.Background(), c)
	if err != nil || v != 4 {
		t.Fatalf("Get() = %d, %v; want 4, nil", v, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sqlmock expectations: %v", err)
	}
}

func TestConfigurePool_AppliesPositiveLimits(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	ConfigurePool(db, Pool{MaxOpenConns: 3, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("expected max open connections 3, got %d", got)
	}
}

func TestWithQueryTimeout_PreservesCallerDeadline(t *testing.T) {
	c := NewConn(nil, "values", SQLite, 2*time.Second, nil)
	parentCtx, parentCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer parentCancel()

	ctx, cancel := c.withQueryTimeout(parentCtx)
	defer cancel()

	parentDeadline, _ := parentCtx.Deadline()
	gotDeadline, _ := ctx.Deadline()
	if !gotDeadline.Equal(parentDeadline) {
		t.Fatalf("expected caller deadline to be preserved, got %v want %v", gotDeadline, parentDeadline)
	}
}

func TestWithQueryTimeout_ZeroTimeout(t *testing.T) {
	c := NewConn(nil, "values", SQLite, 0, nil)
	ctx, cancel := c.withQueryTimeout(context.Background())
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Fatal("expected no deadline when query timeout is zero")
	}
}
