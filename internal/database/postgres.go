// Package database provides the PostgreSQL implementation of the Store interface.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adcompliance/auditor/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using pgx against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pgx connection pool and runs migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Migrate runs database migrations.
func (s *PostgresStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			content_type TEXT NOT NULL,
			original_input TEXT NOT NULL,
			extracted_text TEXT,
			transcript TEXT,
			report_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_user ON audit_records(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_created ON audit_records(created_at)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			key_hash TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			requests_per_minute INTEGER NOT NULL,
			tokens_per_day INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			last_used_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			api_key_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			request_size BIGINT NOT NULL,
			response_code INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp)`,
	}

	ctx := context.Background()
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveAudit persists an audit record; the Report is stored as JSONB.
func (s *PostgresStore) SaveAudit(ctx context.Context, record *models.AuditRecord) error {
	reportJSON, err := json.Marshal(record.Report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_records (id, user_id, content_type, original_input, extracted_text, transcript, report_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.UserID, record.ContentType, record.OriginalInput,
		record.ExtractedText, record.Transcript, reportJSON, record.CreatedAt,
	)
	return err
}

// GetAudit retrieves an audit record by ID.
func (s *PostgresStore) GetAudit(ctx context.Context, id string) (*models.AuditRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, content_type, original_input, extracted_text, transcript, report_json, created_at
		FROM audit_records WHERE id = $1`, id)

	record, err := scanPgAuditRecord(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// ListAudits returns paginated audit records, optionally filtered by user.
func (s *PostgresStore) ListAudits(ctx context.Context, userID string, limit, offset int) ([]*models.AuditRecord, error) {
	var rows pgx.Rows
	var err error
	if userID != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, user_id, content_type, original_input, extracted_text, transcript, report_json, created_at
			FROM audit_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, user_id, content_type, original_input, extracted_text, transcript, report_json, created_at
			FROM audit_records ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.AuditRecord
	for rows.Next() {
		record, err := scanPgAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type pgRowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPgAuditRecord(scanner pgRowScanner) (*models.AuditRecord, error) {
	var record models.AuditRecord
	var extractedText, transcript *string
	var reportJSON []byte

	if err := scanner.Scan(&record.ID, &record.UserID, &record.ContentType, &record.OriginalInput,
		&extractedText, &transcript, &reportJSON, &record.CreatedAt); err != nil {
		return nil, err
	}
	if extractedText != nil {
		record.ExtractedText = *extractedText
	}
	if transcript != nil {
		record.Transcript = *transcript
	}
	if err := json.Unmarshal(reportJSON, &record.Report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &record, nil
}

// CreateAPIKey stores a new API key.
func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, name, requests_per_minute, tokens_per_day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.KeyHash, key.Name, key.RequestsPerMinute, key.TokensPerDay, key.CreatedAt)
	return err
}

// GetAPIKeyByHash retrieves an API key by its hash.
func (s *PostgresStore) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, key_hash, name, requests_per_minute, tokens_per_day, created_at, last_used_at
		FROM api_keys WHERE key_hash = $1`, hash)

	var key models.APIKey
	err := row.Scan(&key.ID, &key.KeyHash, &key.Name, &key.RequestsPerMinute,
		&key.TokensPerDay, &key.CreatedAt, &key.LastUsedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateAPIKeyLastUsed updates the last used timestamp.
func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id string, t time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, t, id)
	return err
}

// DeleteAPIKey removes an API key.
func (s *PostgresStore) DeleteAPIKey(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return err
}

// ListAPIKeys returns all API keys.
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, requests_per_minute, tokens_per_day, created_at, last_used_at
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.RequestsPerMinute,
			&k.TokensPerDay, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, err
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// LogRequest stores an audit log entry.
func (s *PostgresStore) LogRequest(ctx context.Context, log *models.AuditLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, api_key_id, endpoint, method, request_size, response_code, duration_ms, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.APIKeyID, log.Endpoint, log.Method, log.RequestSize,
		log.ResponseCode, log.DurationMs, log.Timestamp)
	return err
}

// GetAuditLogs returns paginated audit logs.
func (s *PostgresStore) GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, api_key_id, endpoint, method, request_size, response_code, duration_ms, timestamp
		FROM audit_logs ORDER BY timestamp DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.APIKeyID, &l.Endpoint, &l.Method,
			&l.RequestSize, &l.ResponseCode, &l.DurationMs, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
