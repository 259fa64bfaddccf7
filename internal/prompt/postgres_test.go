package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers: mock DB types
// ---------------------------------------------------------------------------

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// rowOf returns a row that scans values into string, int and time destinations.
func rowOf(values ...any) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return assign(dest, values) }}
}

func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error { return assign(dest, r.data[r.idx-1]) }

type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

var (
	t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

// ---------------------------------------------------------------------------
// PostgresStore tests
// ---------------------------------------------------------------------------

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()
	var executed string
	s := NewPostgresStore(&mockDB{execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
		executed = sql
		return pgconn.CommandTag{}, nil
	}})
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !strings.Contains(executed, "CREATE TABLE IF NOT EXISTS prompts") {
		t.Errorf("Migrate ran %q", executed)
	}

	boom := errors.New("permission denied")
	s = NewPostgresStore(&mockDB{execFunc: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, boom
	}})
	if err := s.Migrate(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestPostgresStore_Create(t *testing.T) {
	t.Parallel()
	var gotArgs []any
	s := NewPostgresStore(&mockDB{queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
		if !strings.Contains(sql, "INSERT INTO prompts") {
			t.Errorf("unexpected query %q", sql)
		}
		gotArgs = args
		return rowOf(t0, t0)
	}})

	p, err := s.Create(context.Background(), "  She sells seashells ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Text != "She sells seashells" || !p.CreatedAt.Equal(t0) {
		t.Errorf("Create = %+v", p)
	}
	if len(gotArgs) != 2 || gotArgs[0] != p.ID || gotArgs[1] != "She sells seashells" {
		t.Errorf("args = %v", gotArgs)
	}

	if _, err := s.Create(context.Background(), ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank err = %v, want ErrEmptyText before any query", err)
	}
}

func TestPostgresStore_Get(t *testing.T) {
	t.Parallel()
	s := NewPostgresStore(&mockDB{queryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
		if args[0] == "p1" {
			return rowOf("p1", "Hello world", t0, t1)
		}
		return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
	}})

	p, err := s.Get(context.Background(), "p1")
	if err != nil || p == nil {
		t.Fatalf("Get = %v, %v", p, err)
	}
	if p.Text != "Hello world" || !p.UpdatedAt.Equal(t1) {
		t.Errorf("Get = %+v", p)
	}
	if p, err := s.Get(context.Background(), "missing"); p != nil || err != nil {
		t.Errorf("Get missing = %v, %v; want nil, nil", p, err)
	}
}

func TestPostgresStore_Random(t *testing.T) {
	t.Parallel()
	s := NewPostgresStore(&mockDB{queryRowFunc: func(_ context.Context, sql string, _ ...any) pgx.Row {
		if !strings.Contains(sql, "ORDER BY random() LIMIT 1") {
			t.Errorf("unexpected query %q", sql)
		}
		return rowOf("p2", "Red leather", t0, t0)
	}})
	p, err := s.Random(context.Background())
	if err != nil || p == nil || p.ID != "p2" {
		t.Fatalf("Random = %+v, %v", p, err)
	}

	empty := NewPostgresStore(&mockDB{})
	if p, err := empty.Random(context.Background()); p != nil || err != nil {
		t.Errorf("Random on empty = %v, %v; want nil, nil", p, err)
	}
}

func TestPostgresStore_List(t *testing.T) {
	t.Parallel()
	rows := &mockRows{data: [][]any{
		{"p1", "Hello world", t0, t0},
		{"p2", "How are you today?", t1, t1},
	}}
	s := NewPostgresStore(&mockDB{queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
		return rows, nil
	}})

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[1].Text != "How are you today?" {
		t.Errorf("List = %+v", list)
	}
	if !rows.closed {
		t.Error("rows not closed")
	}

	empty, err := NewPostgresStore(&mockDB{}).List(context.Background())
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("List on empty = %#v, %v; want non-nil empty slice", empty, err)
	}

	rowsErr := errors.New("connection reset")
	s = NewPostgresStore(&mockDB{queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
		return &mockRows{err: rowsErr}, nil
	}})
	if _, err := s.List(context.Background()); !errors.Is(err, rowsErr) {
		t.Errorf("err = %v, want rows error", err)
	}
}

func TestPostgresStore_Update(t *testing.T) {
	t.Parallel()
	s := NewPostgresStore(&mockDB{queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
		if !strings.Contains(sql, "UPDATE prompts") {
			t.Errorf("unexpected query %q", sql)
		}
		if args[0] == "p1" {
			return rowOf(t0, t1)
		}
		return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
	}})

	p, err := s.Update(context.Background(), "p1", "Hello there")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Text != "Hello there" || !p.UpdatedAt.Equal(t1) || !p.CreatedAt.Equal(t0) {
		t.Errorf("Update = %+v", p)
	}
	if _, err := s.Update(context.Background(), "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Delete(t *testing.T) {
	t.Parallel()
	s := NewPostgresStore(&mockDB{execFunc: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
		if args[0] == "p1" {
			return pgconn.NewCommandTag("DELETE 1"), nil
		}
		return pgconn.NewCommandTag("DELETE 0"), nil
	}})

	if err := s.Delete(context.Background(), "p1"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := s.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Count(t *testing.T) {
	t.Parallel()
	s := NewPostgresStore(&mockDB{queryRowFunc: func(context.Context, string, ...any) pgx.Row {
		return rowOf(11)
	}})
	n, err := s.Count(context.Background())
	if err != nil || n != 11 {
		t.Errorf("Count = %d, %v; want 11", n, err)
	}
}
