package sample

import (
	"errors"
	"testing"
)

type fakeSQLRow struct {
	score      float64
	user, item int32
}

// fakeRows is a connection-free stand-in for *sql.Rows, driving
// SQLSource.Next's scan/skip loop against a canned fixture instead of a
// live driver.
type fakeRows struct {
	rows    []fakeSQLRow
	idx     int
	failRow int // index in rows that fails to Scan, or -1 for none
}

func (f *fakeRows) Next() bool { return f.idx < len(f.rows) }

func (f *fakeRows) Scan(dest ...any) error {
	i := f.idx
	f.idx++
	if i == f.failRow {
		return errors.New("fake scan failure")
	}
	r := f.rows[i]
	*dest[0].(*float64) = r.score
	*dest[1].(*int32) = r.user
	*dest[2].(*int32) = r.item
	return nil
}

func TestSQLSourceNextSkipsMalformedRows(t *testing.T) {
	src := &SQLSource{rows: &fakeRows{
		rows: []fakeSQLRow{
			{score: 1.0, user: 0, item: 1},
			{score: 2.5, user: 2, item: 3},
		},
		failRow: 0,
	}}

	score, x, ok := src.Next()
	if !ok || score != 2.5 || len(x) != 2 || x[0] != 2 || x[1] != 3 {
		t.Fatalf("unexpected sample after skipping a malformed row: score=%v x=%v ok=%v", score, x, ok)
	}

	if _, _, ok := src.Next(); ok {
		t.Fatal("expected end of stream")
	}
}

func TestSQLSourceNextStopsCleanlyAtEndOfRows(t *testing.T) {
	src := &SQLSource{rows: &fakeRows{failRow: -1}}
	if _, _, ok := src.Next(); ok {
		t.Fatal("expected no rows from an empty fixture")
	}
}

func TestSQLSourceCloseWithoutDBIsSafe(t *testing.T) {
	src := &SQLSource{rows: &fakeRows{failRow: -1}}
	if err := src.Close(); err != nil {
		t.Fatalf("unexpected error closing a source built without a live db: %v", err)
	}
}
