/*
Copyright (C) 2024  AsyncMF Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package sample

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// sqlRows is the subset of *sql.Rows that SQLSource.Next needs. Narrowing
// to this interface lets the row-scanning/skip loop be exercised against a
// canned fixture in tests, without opening a live database connection.
type sqlRows interface {
	Next() bool
	Scan(dest ...any) error
}

// SQLSource streams (score, user, item) rows out of a database/sql query,
// iterating the result row by row instead of buffering the whole table.
type SQLSource struct {
	db   *sql.DB
	rows sqlRows
}

// OpenMySQLSource connects to a MySQL database (dsn is a standard
// go-sql-driver/mysql DSN) and streams the result of query, which must
// project exactly (score, user_id, item_id) columns in that order.
func OpenMySQLSource(dsn, query string) (*SQLSource, error) {
	return openSQLSource("mysql", dsn, query)
}

// OpenPostgresSource connects to a Postgres database (dsn is a standard
// lib/pq connection string) and streams the result of query, which must
// project exactly (score, user_id, item_id) columns in that order.
func OpenPostgresSource(dsn, query string) (*SQLSource, error) {
	return openSQLSource("postgres", dsn, query)
}

func openSQLSource(driver, dsn, query string) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(query)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLSource{db: db, rows: rows}, nil
}

func (s *SQLSource) Next() (float64, []int32, bool) {
	for s.rows.Next() {
		var score float64
		var user, item int32
		if err := s.rows.Scan(&score, &user, &item); err != nil {
			continue // malformed row: skip, never abort the stream
		}
		return score, []int32{user, item}, true
	}
	return 0, nil, false
}

func (s *SQLSource) Close() error {
	if closer, ok := s.rows.(interface{ Close() error }); ok {
		closer.Close()
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
