package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// maxOutput bounds the stored output of one action.
const maxOutput = 4096

// Entry is one dispatched action.
type Entry struct {
	ID        int64
	Action    string
	Target    string
	Command   string
	Args      []string
	Success   bool
	Output    string
	Timestamp time.Time
}

// Store wraps a SQLite database holding the action log.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path with WAL mode.
// Use ":memory:" for in-memory databases in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records an action and sets entry.ID.
func (s *Store) Append(ctx context.Context, entry *Entry) error {
	args, err := marshalJSON(entry.Args)
	if err != nil {
		return err
	}
	output := truncateOutput(entry.Output)
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (action, target, command, args, success, output, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Action, entry.Target, nullString(entry.Command), args,
		entry.Success, nullString(output), entry.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	entry.ID, _ = result.LastInsertId()
	return nil
}

// Recent returns up to limit entries, newest first. A limit of 0 or less
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, target, command, args, success, output, timestamp
		 FROM actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return scanEntries(rows)
}

// ForTarget returns the entries for one container or project, newest first.
func (s *Store) ForTarget(ctx context.Context, target string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, target, command, args, success, output, timestamp
		 FROM actions WHERE target=? ORDER BY id DESC`, target)
	if err != nil {
		return nil, fmt.Errorf("listing history for %s: %w", target, err)
	}
	return scanEntries(rows)
}

// Prune deletes entries older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE timestamp < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// truncateOutput cuts s to at most maxOutput bytes on a rune boundary.
func truncateOutput(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	n := maxOutput
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var command, args, output sql.NullString
		var ts int64
		if err := rows.Scan(&e.ID, &e.Action, &e.Target, &command, &args, &e.Success, &output, &ts); err != nil {
			return nil, err
		}
		e.Command = command.String
		e.Output = output.String
		e.Timestamp = time.Unix(ts, 0)
		if args.Valid && args.String != "" {
			if err := json.Unmarshal([]byte(args.String), &e.Args); err != nil {
				return nil, fmt.Errorf("unmarshaling history args: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func marshalJSON(args []string) (sql.NullString, error) {
	if len(args) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling JSON: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
