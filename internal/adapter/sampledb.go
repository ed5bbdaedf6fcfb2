package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // register sqlite driver
)

// sampleSchemaSQL is the demo retail schema: ten customers with a handful
// of orders, enough to exercise counting, grouping, and joins.
const sampleSchemaSQL = `
CREATE TABLE customers (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL,
    city       TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE orders (
    id          INTEGER PRIMARY KEY,
    customer_id INTEGER NOT NULL REFERENCES customers(id),
    product     TEXT NOT NULL,
    amount      REAL NOT NULL,
    ordered_at  TEXT NOT NULL
);

INSERT INTO customers (id, name, email, city, created_at) VALUES
    (1,  'Alice Hartmann',  'alice@example.com',  'Berlin',    '2025-01-12'),
    (2,  'Ben Okafor',      'ben@example.com',    'Lagos',     '2025-01-19'),
    (3,  'Carla Mendes',    'carla@example.com',  'Lisbon',    '2025-02-02'),
    (4,  'Derek Liu',       'derek@example.com',  'Singapore', '2025-02-14'),
    (5,  'Elena Petrova',   'elena@example.com',  'Sofia',     '2025-03-01'),
    (6,  'Farid Rahimi',    'farid@example.com',  'Toronto',   '2025-03-20'),
    (7,  'Grace Kim',       'grace@example.com',  'Seoul',     '2025-04-05'),
    (8,  'Hugo Alvarez',    'hugo@example.com',   'Madrid',    '2025-04-22'),
    (9,  'Imani Wright',    'imani@example.com',  'Nairobi',   '2025-05-09'),
    (10, 'Jonas Berg',      'jonas@example.com',  'Oslo',      '2025-05-30');

INSERT INTO orders (id, customer_id, product, amount, ordered_at) VALUES
    (1, 1,  'Notebook',   24.50, '2025-02-01'),
    (2, 1,  'Desk lamp',  39.99, '2025-03-11'),
    (3, 3,  'Monitor',   219.00, '2025-02-20'),
    (4, 4,  'Keyboard',   89.90, '2025-03-02'),
    (5, 5,  'Notebook',   24.50, '2025-03-15'),
    (6, 7,  'Headphones', 129.00, '2025-04-18'),
    (7, 8,  'Monitor',   219.00, '2025-05-01'),
    (8, 10, 'Desk lamp',  39.99, '2025-06-02');
`

// OpenSampleDB opens an in-memory sqlite database seeded with the demo
// retail schema. Used by demo mode and tests as a stand-in for a real
// customer database connection.
func OpenSampleDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening sample db: %w", err)
	}
	// The in-memory database vanishes with its last connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sampleSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seeding sample db: %w", err)
	}
	return db, nil
}

// SQLiteSchema introspects a sqlite connection into a CREATE-statement
// listing for the NL-to-SQL generator's prompt.
type SQLiteSchema struct {
	DB *sql.DB
}

// Schema returns the database's table definitions as DDL text.
func (s SQLiteSchema) Schema(ctx context.Context) (string, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ddl []string
	for rows.Next() {
		var stmt sql.NullString
		if err := rows.Scan(&stmt); err != nil {
			return "", err
		}
		if stmt.Valid {
			ddl = append(ddl, stmt.String)
		}
	}
	return strings.Join(ddl, ";\n"), rows.Err()
}
