package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS training_examples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	intent TEXT NOT NULL,
	response TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL DEFAULT 'answer',
	flow TEXT NOT NULL DEFAULT '',
	control TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_training_examples_intent ON training_examples(intent);
`

// SQLiteSource reads datasets from a training_examples table, one row per triple.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the knowledge base database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteSource, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and visible
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLiteSource{db: db}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Count returns the number of stored triples.
func (s *SQLiteSource) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count training examples: %w", err)
	}
	return n, nil
}

// Import appends every triple of d inside one transaction.
func (s *SQLiteSource) Import(ctx context.Context, d Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO training_examples (text, intent, response, kind, flow, control, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, in := range d.Intents {
		kind := in.Kind
		if kind == "" {
			kind = KindAnswer
		}
		attrs := strings.Join(in.Attributes, ",")
		for i, u := range in.Utterances {
			resp := ""
			if len(in.Responses) > 0 {
				resp = in.Responses[i%len(in.Responses)]
			}
			if _, err := stmt.ExecContext(ctx, u, in.Label, resp, string(kind), in.Flow, in.Control, attrs); err != nil {
				return fmt.Errorf("insert example for %q: %w", in.Label, err)
			}
		}
	}
	return tx.Commit()
}

// Load rebuilds a Dataset from the table. Intents keep the order of their first row and take
// kind, flow, control and attributes from it; each row contributes one utterance/response pair.
func (s *SQLiteSource) Load(ctx context.Context) (Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT text, intent, response, kind, flow, control, attributes
		FROM training_examples ORDER BY id`)
	if err != nil {
		return Dataset{}, fmt.Errorf("query training examples: %w", err)
	}
	defer rows.Close()

	var (
		d     Dataset
		index = map[string]int{}
	)
	for rows.Next() {
		var text, intent, response, kind, flow, control, attrs string
		if err := rows.Scan(&text, &intent, &response, &kind, &flow, &control, &attrs); err != nil {
			return Dataset{}, fmt.Errorf("scan training example: %w", err)
		}
		intent = strings.TrimSpace(intent)
		i, ok := index[intent]
		if !ok {
			spec := IntentSpec{Label: intent, Kind: Kind(kind), Flow: flow, Control: control}
			if attrs != "" {
				spec.Attributes = strings.Split(attrs, ",")
			}
			d.Intents = append(d.Intents, spec)
			i = len(d.Intents) - 1
			index[intent] = i
		}
		d.Intents[i].Utterances = append(d.Intents[i].Utterances, text)
		if response != "" {
			d.Intents[i].Responses = append(d.Intents[i].Responses, response)
		}
	}
	if err := rows.Err(); err != nil {
		return Dataset{}, fmt.Errorf("iterate training examples: %w", err)
	}
	return d, nil
}
