package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/psplay/pkg/core"

	// sqlite driver for the history database.
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite history store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// NewSQLiteStoreWithDB wraps an existing connection. The schema is not
// touched.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens a connection to the SQLite database, creating its directory
// when needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema brings the schema up to date.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return ErrNotOpen
	}
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Path returns the database path passed to Open.
func (s *SQLiteStore) Path() string { return s.path }

func generateID() string {
	return uuid.New().String()
}

// --- Round operations ---

// CreateRound records the start of an evaluation round.
func (s *SQLiteStore) CreateRound(lesson, origin string) (*Round, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	round := &Round{
		ID:        generateID(),
		Lesson:    lesson,
		Origin:    origin,
		Status:    core.RoundStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO rounds (id, lesson, origin, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		round.ID, round.Lesson, round.Origin, string(round.Status), round.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	return round, nil
}

// GetRound retrieves a round by ID.
func (s *SQLiteStore) GetRound(id string) (*Round, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRow(
		`SELECT id, lesson, origin, status, started_at, completed_at, error FROM rounds WHERE id = ?`,
		id,
	)
	round, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// CompleteRound marks a round as finished.
func (s *SQLiteStore) CompleteRound(id string, status RoundStatus, errMsg string) error {
	if s.db == nil {
		return ErrNotOpen
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.Exec(
		`UPDATE rounds SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete round: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRounds returns the most recent rounds, newest first.
func (s *SQLiteStore) ListRounds(limit int) ([]*Round, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, lesson, origin, status, started_at, completed_at, error
		 FROM rounds ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rounds []*Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(row scanner) (*Round, error) {
	round := &Round{}
	var (
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := row.Scan(&round.ID, &round.Lesson, &round.Origin, &status, &round.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	round.Status = RoundStatus(status)
	if completedAt.Valid {
		round.CompletedAt = &completedAt.Time
	}
	round.Error = errMsg.String
	return round, nil
}

// --- Evaluation operations ---

// RecordEvaluation stores the settlement of one identifier.
func (s *SQLiteStore) RecordEvaluation(eval *Evaluation) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if eval.ID == "" {
		eval.ID = generateID()
	}
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO evaluations
		 (id, round_id, lesson, identifier, status, kind, message, output, attempts, sequence, execution_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eval.ID, eval.RoundID, eval.Lesson, eval.Identifier, string(eval.Status), eval.Kind,
		eval.Message, eval.Output, eval.Attempts, int64(eval.Sequence), eval.ExecutionMS, eval.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}
	return nil
}

const evaluationColumns = `id, round_id, lesson, identifier, status, kind, message, output,
	attempts, sequence, execution_ms, created_at`

// GetEvaluationsForRound returns the evaluations of a round in recording
// order.
func (s *SQLiteStore) GetEvaluationsForRound(roundID string) ([]*Evaluation, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.Query(
		`SELECT `+evaluationColumns+` FROM evaluations WHERE round_id = ? ORDER BY created_at, rowid`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evals []*Evaluation
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, eval)
	}
	return evals, rows.Err()
}

// GetLatestEvaluation returns the most recent evaluation recorded for an
// identifier of a lesson.
func (s *SQLiteStore) GetLatestEvaluation(lesson, identifier string) (*Evaluation, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRow(
		`SELECT `+evaluationColumns+` FROM evaluations
		 WHERE lesson = ? AND identifier = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		lesson, identifier,
	)
	eval, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evaluation %s/%s: %w", lesson, identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return eval, nil
}

func scanEvaluation(row scanner) (*Evaluation, error) {
	eval := &Evaluation{}
	var (
		status string
		seq    int64
	)
	err := row.Scan(&eval.ID, &eval.RoundID, &eval.Lesson, &eval.Identifier, &status, &eval.Kind,
		&eval.Message, &eval.Output, &eval.Attempts, &seq, &eval.ExecutionMS, &eval.CreatedAt)
	if err != nil {
		return nil, err
	}
	eval.Status = EvaluationStatus(status)
	eval.Sequence = uint64(seq)
	return eval, nil
}
