package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
)

type sliceBankRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSliceBankRepository returns a repositories.SliceBankRepository backed
// by Postgres. Slices round-trip through the slice_data JSONB column
// field-for-field (§8 round-trip laws).
func NewSliceBankRepository(db *sql.DB, logger *zap.Logger) repositories.SliceBankRepository {
	return &sliceBankRepository{db: db, logger: logger}
}

func (r *sliceBankRepository) Create(ctx context.Context, b *entities.SliceBank) error {
	sliceData, err := json.Marshal(b.Slices)
	if err != nil {
		return fmt.Errorf("marshal slice data: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO slice_banks (id, session_id, source_path, source_filename, stem_role, sample_rate,
		                         total_samples, total_duration, bpm, key, mean_energy, max_energy, variance_energy, slice_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, b.ID, b.SessionID, b.SourcePath, b.SourceFilename, string(b.StemRole), b.SampleRate,
		b.TotalSamples, b.TotalDuration, b.BPM, b.Key, b.MeanEnergy, b.MaxEnergy, b.VarianceEnergy, sliceData,
	).Scan(&b.ID)
	if err != nil {
		r.logger.Error("slice bank insert failed", zap.Error(err), zap.String("bank_id", b.ID))
		return fmt.Errorf("insert slice bank: %w", err)
	}
	return nil
}

func (r *sliceBankRepository) GetByID(ctx context.Context, id string) (*entities.SliceBank, error) {
	b, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, session_id, source_path, source_filename, stem_role, sample_rate, total_samples,
		       total_duration, bpm, key, mean_energy, max_energy, variance_energy, slice_data
		FROM slice_banks WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *sliceBankRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.SliceBank, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, source_path, source_filename, stem_role, sample_rate, total_samples,
		       total_duration, bpm, key, mean_energy, max_energy, variance_energy, slice_data
		FROM slice_banks WHERE session_id = $1 ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list slice banks: %w", err)
	}
	defer rows.Close()

	var banks []*entities.SliceBank
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slice bank: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

func (r *sliceBankRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM slice_banks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slice bank: %w", err)
	}
	return nil
}

func (r *sliceBankRepository) scan(row rowScanner) (*entities.SliceBank, error) {
	var b entities.SliceBank
	var stemRole string
	var sliceData []byte
	err := row.Scan(&b.ID, &b.SessionID, &b.SourcePath, &b.SourceFilename, &stemRole, &b.SampleRate,
		&b.TotalSamples, &b.TotalDuration, &b.BPM, &b.Key, &b.MeanEnergy, &b.MaxEnergy, &b.VarianceEnergy, &sliceData)
	if err != nil {
		return nil, err
	}
	b.StemRole = entities.StemRole(stemRole)
	if len(sliceData) > 0 {
		if err := json.Unmarshal(sliceData, &b.Slices); err != nil {
			return nil, fmt.Errorf("unmarshal slice data: %w", err)
		}
	}
	return &b, nil
}

type triggerSequenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewTriggerSequenceRepository(db *sql.DB, logger *zap.Logger) repositories.TriggerSequenceRepository {
	return &triggerSequenceRepository{db: db, logger: logger}
}

func (r *triggerSequenceRepository) Create(ctx context.Context, seq *entities.TriggerSequence) error {
	events, err := json.Marshal(seq.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	sourceConfig, err := json.Marshal(seq.SourceConfig)
	if err != nil {
		return fmt.Errorf("marshal source config: %w", err)
	}
	rules, err := json.Marshal(seq.Rules)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO trigger_sequences (id, slice_bank_id, events, source_config, mode, rules, seed, duration_beats, bpm)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, seq.ID, seq.SliceBankID, events, sourceConfig, seq.Mode, rules, seq.Seed, seq.DurationBeats, seq.BPM,
	).Scan(&seq.ID)
	if err != nil {
		r.logger.Error("trigger sequence insert failed", zap.Error(err), zap.String("sequence_id", seq.ID))
		return fmt.Errorf("insert trigger sequence: %w", err)
	}
	return nil
}

func (r *triggerSequenceRepository) GetByID(ctx context.Context, id string) (*entities.TriggerSequence, error) {
	seq, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, slice_bank_id, events, source_config, mode, rules, seed, duration_beats, bpm
		FROM trigger_sequences WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return seq, err
}

func (r *triggerSequenceRepository) ListBySliceBank(ctx context.Context, sliceBankID string) ([]*entities.TriggerSequence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slice_bank_id, events, source_config, mode, rules, seed, duration_beats, bpm
		FROM trigger_sequences WHERE slice_bank_id = $1 ORDER BY created_at
	`, sliceBankID)
	if err != nil {
		return nil, fmt.Errorf("list trigger sequences: %w", err)
	}
	defer rows.Close()

	var seqs []*entities.TriggerSequence
	for rows.Next() {
		seq, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trigger sequence: %w", err)
		}
		seqs = append(seqs, seq)
	}
	return seqs, rows.Err()
}

func (r *triggerSequenceRepository) scan(row rowScanner) (*entities.TriggerSequence, error) {
	var seq entities.TriggerSequence
	var events, sourceConfig, rules []byte
	err := row.Scan(&seq.ID, &seq.SliceBankID, &events, &sourceConfig, &seq.Mode, &rules, &seq.Seed, &seq.DurationBeats, &seq.BPM)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &seq.Events); err != nil {
			return nil, fmt.Errorf("unmarshal events: %w", err)
		}
	}
	if len(sourceConfig) > 0 {
		if err := json.Unmarshal(sourceConfig, &seq.SourceConfig); err != nil {
			return nil, fmt.Errorf("unmarshal source config: %w", err)
		}
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &seq.Rules); err != nil {
			return nil, fmt.Errorf("unmarshal rules: %w", err)
		}
	}
	return &seq, nil
}
