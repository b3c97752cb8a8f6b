package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("prediction not found")

// Prediction is one audited pass through the inference pipeline.
type Prediction struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Outcome      string    `json:"outcome"`
	Verdict      string    `json:"verdict,omitempty"`
	Probability  *float64  `json:"probability,omitempty"`
	Threshold    float64   `json:"threshold"`
	ModelVersion string    `json:"model_version,omitempty"`
	Amount       float64   `json:"amount"`
	Error        string    `json:"error,omitempty"`
}

type Store struct {
	database *sql.DB
}

// Open initializes the SQLite database
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        prediction_id TEXT NOT NULL,
        outcome VARCHAR(32) NOT NULL,
        verdict VARCHAR(16),
        probability REAL,
        threshold REAL NOT NULL,
        model_version TEXT,
        amount REAL,
        error TEXT,
        created_at DATETIME NOT NULL,
        UNIQUE(prediction_id)
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	return s.database.Close()
}

func (s *Store) SavePrediction(ctx context.Context, p Prediction) error {
	if p.ID == "" {
		return errors.New("prediction id required")
	}
	var verdict, modelVersion, errText sql.NullString
	if p.Verdict != "" {
		verdict = sql.NullString{String: p.Verdict, Valid: true}
	}
	if p.ModelVersion != "" {
		modelVersion = sql.NullString{String: p.ModelVersion, Valid: true}
	}
	if p.Error != "" {
		errText = sql.NullString{String: p.Error, Valid: true}
	}
	var probability sql.NullFloat64
	if p.Probability != nil {
		probability = sql.NullFloat64{Float64: *p.Probability, Valid: true}
	}

	_, err := s.database.ExecContext(ctx, `
        INSERT INTO predictions (
            prediction_id, outcome, verdict, probability, threshold,
            model_version, amount, error, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Outcome, verdict, probability, p.Threshold,
		modelVersion, p.Amount, errText, p.CreatedAt.UTC())
	return err
}

func (s *Store) GetPrediction(ctx context.Context, id string) (Prediction, error) {
	var (
		p                              Prediction
		verdict, modelVersion, errText sql.NullString
		probability                    sql.NullFloat64
	)
	err := s.database.QueryRowContext(ctx, `
        SELECT prediction_id, outcome, verdict, probability, threshold,
               model_version, amount, error, created_at
        FROM predictions
        WHERE prediction_id = ?`, id).Scan(
		&p.ID, &p.Outcome, &verdict, &probability, &p.Threshold,
		&modelVersion, &p.Amount, &errText, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Prediction{}, ErrNotFound
	}
	if err != nil {
		return Prediction{}, err
	}
	p.Verdict = verdict.String
	p.ModelVersion = modelVersion.String
	p.Error = errText.String
	if probability.Valid {
		v := probability.Float64
		p.Probability = &v
	}
	return p, nil
}

// PurgeBefore deletes predictions created before cutoff and returns how many were removed.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.database.ExecContext(ctx, `DELETE FROM predictions WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountPredictions(ctx context.Context) (int, error) {
	var n int
	err := s.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n)
	return n, err
}
