package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/config"
)

// NewConnection opens a connection pool against the LoopForge database.
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// CreateTables creates the LoopForge schema if it does not already exist.
func CreateTables(db *sql.DB, logger *zap.Logger) error {
	queries := []string{
		createSessionsTable,
		createJobsTable,
		createAssetsTable,
		createSliceBanksTable,
		createTriggerSequencesTable,
		createMomentsTable,
		createIndexes,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			logger.Error("schema migration failed", zap.Error(err), zap.String("query", query))
			return fmt.Errorf("creating table: %w", err)
		}
	}

	logger.Info("LoopForge schema ready")
	return nil
}

func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	return CreateTables(db, logger)
}

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
    id UUID PRIMARY KEY,
    source_filename TEXT NOT NULL,
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    detected_bpm DOUBLE PRECISION,
    detected_key TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    input_path TEXT NOT NULL DEFAULT '',
    config JSONB NOT NULL DEFAULT '{}',
    output_paths JSONB NOT NULL DEFAULT '{}',
    progress INTEGER NOT NULL DEFAULT 0,
    stage TEXT NOT NULL DEFAULT '',
    retry_count INTEGER NOT NULL DEFAULT 0,
    max_retries INTEGER NOT NULL DEFAULT 3,
    error_message TEXT NOT NULL DEFAULT '',
    error_trace TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    started_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ
);
`

const createAssetsTable = `
CREATE TABLE IF NOT EXISTS assets (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    filename TEXT NOT NULL,
    file_path TEXT NOT NULL,
    type TEXT NOT NULL,
    stem_role TEXT NOT NULL DEFAULT 'UNKNOWN',
    content_hash TEXT NOT NULL DEFAULT '',
    detected_bpm DOUBLE PRECISION,
    detected_key TEXT,
    confidence DOUBLE PRECISION,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const createSliceBanksTable = `
CREATE TABLE IF NOT EXISTS slice_banks (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    source_path TEXT NOT NULL,
    source_filename TEXT NOT NULL,
    stem_role TEXT NOT NULL DEFAULT 'UNKNOWN',
    sample_rate INTEGER NOT NULL,
    total_samples INTEGER NOT NULL,
    total_duration DOUBLE PRECISION NOT NULL,
    bpm DOUBLE PRECISION,
    key TEXT,
    mean_energy DOUBLE PRECISION NOT NULL DEFAULT 0,
    max_energy DOUBLE PRECISION NOT NULL DEFAULT 0,
    variance_energy DOUBLE PRECISION NOT NULL DEFAULT 0,
    slice_data JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const createTriggerSequencesTable = `
CREATE TABLE IF NOT EXISTS trigger_sequences (
    id UUID PRIMARY KEY,
    slice_bank_id UUID NOT NULL,
    events JSONB NOT NULL DEFAULT '[]',
    source_config JSONB NOT NULL DEFAULT '{}',
    mode TEXT NOT NULL,
    rules JSONB NOT NULL DEFAULT '[]',
    seed BIGINT NOT NULL,
    duration_beats DOUBLE PRECISION NOT NULL,
    bpm DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const createMomentsTable = `
CREATE TABLE IF NOT EXISTS moments (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    start_time DOUBLE PRECISION NOT NULL,
    end_time DOUBLE PRECISION NOT NULL,
    duration DOUBLE PRECISION NOT NULL,
    energy DOUBLE PRECISION NOT NULL DEFAULT 0,
    brightness DOUBLE PRECISION NOT NULL DEFAULT 0,
    label TEXT NOT NULL DEFAULT '',
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_session ON jobs(session_id);
CREATE INDEX IF NOT EXISTS idx_assets_session ON assets(session_id);
CREATE INDEX IF NOT EXISTS idx_slice_banks_session ON slice_banks(session_id);
CREATE INDEX IF NOT EXISTS idx_trigger_sequences_bank ON trigger_sequences(slice_bank_id);
CREATE INDEX IF NOT EXISTS idx_moments_session ON moments(session_id);
`
