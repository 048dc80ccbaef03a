package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

const analysisColumns = `id, url, domain, business_category, status, locale, error_message,
	score_json, details_json, findings_json, recommendation_json,
	contact_name, contact_email, contact_status,
	email_sent, email_sent_at, email_opened, email_opened_at, notes,
	created_at, updated_at, analyzed_at`

// SQLiteAnalysisRepository implements AnalysisRepository for SQLite.
type SQLiteAnalysisRepository struct {
	db *sql.DB
}

// NewSQLiteAnalysisRepository creates a new SQLite analysis repository.
func NewSQLiteAnalysisRepository(db *sql.DB) *SQLiteAnalysisRepository {
	return &SQLiteAnalysisRepository{db: db}
}

func (r *SQLiteAnalysisRepository) Create(ctx context.Context, a *models.AnalysisRecord) error {
	scoreJSON, detailsJSON, findingsJSON, recJSON, err := marshalPayload(a)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO analyses (` + analysisColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.URL,
		a.Domain,
		a.BusinessCategory,
		a.Status,
		a.Locale,
		nullString(a.ErrorMessage),
		nullString(scoreJSON),
		nullString(detailsJSON),
		nullString(findingsJSON),
		nullString(recJSON),
		nullString(a.ContactName),
		nullString(a.ContactEmail),
		a.ContactStatus,
		boolToInt(a.EmailSent),
		nullTime(a.EmailSentAt),
		boolToInt(a.EmailOpened),
		nullTime(a.EmailOpenedAt),
		nullString(a.Notes),
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
		nullTime(a.AnalyzedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

func (r *SQLiteAnalysisRepository) GetByID(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = ?`
	return scanAnalysis(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteAnalysisRepository) List(ctx context.Context, filter AnalysisFilter) ([]*models.AnalysisRecord, int, error) {
	var conds []string
	var args []any

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.BusinessCategory != "" {
		conds = append(conds, "business_category = ?")
		args = append(args, filter.BusinessCategory)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, "(url LIKE ? OR domain LIKE ? OR contact_name LIKE ? OR contact_email LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	query := `SELECT ` + analysisColumns + ` FROM analyses` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []*models.AnalysisRecord
	for rows.Next() {
		a, err := scanAnalysisFromRows(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, a)
	}
	return records, total, rows.Err()
}

func (r *SQLiteAnalysisRepository) Update(ctx context.Context, a *models.AnalysisRecord) error {
	scoreJSON, detailsJSON, findingsJSON, recJSON, err := marshalPayload(a)
	if err != nil {
		return err
	}

	query := `
		UPDATE analyses SET status = ?, error_message = ?, score_json = ?, details_json = ?,
			findings_json = ?, recommendation_json = ?, analyzed_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		a.Status,
		nullString(a.ErrorMessage),
		nullString(scoreJSON),
		nullString(detailsJSON),
		nullString(findingsJSON),
		nullString(recJSON),
		nullTime(a.AnalyzedAt),
		time.Now().Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	return nil
}

func (r *SQLiteAnalysisRepository) UpdateCRM(ctx context.Context, id string, upd CRMUpdate) (*models.AnalysisRecord, error) {
	var sets []string
	var args []any
	now := time.Now().Format(time.RFC3339)

	if upd.ContactName != nil {
		sets = append(sets, "contact_name = ?")
		args = append(args, nullString(*upd.ContactName))
	}
	if upd.ContactEmail != nil {
		sets = append(sets, "contact_email = ?")
		args = append(args, nullString(*upd.ContactEmail))
	}
	if upd.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, nullString(*upd.Notes))
	}
	if upd.ContactStatus != nil {
		sets = append(sets, "contact_status = ?")
		args = append(args, *upd.ContactStatus)
	}
	if upd.MarkEmailSent {
		sets = append(sets, "email_sent = 1", "email_sent_at = ?")
		args = append(args, now)
	}
	if upd.MarkEmailOpened {
		sets = append(sets, "email_opened = 1", "email_opened_at = ?")
		args = append(args, now)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)

	result, err := r.db.ExecContext(ctx,
		"UPDATE analyses SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update analysis contact fields: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteAnalysisRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLiteAnalysisRepository) DomainExists(ctx context.Context, domain string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM analyses WHERE domain = ? LIMIT 1", domain).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check domain: %w", err)
	}
	return true, nil
}

func (r *SQLiteAnalysisRepository) ClaimPending(ctx context.Context) (*models.AnalysisRecord, error) {
	// Begin transaction (SQLite/libsql doesn't support custom isolation levels)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// UPDATE ... RETURNING atomically claims and fetches in one statement,
	// which keeps lock contention lower than SELECT then UPDATE.
	now := time.Now().Format(time.RFC3339)
	query := `
		UPDATE analyses
		SET status = 'analyzing', updated_at = ?
		WHERE id = (
			SELECT id FROM analyses
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING ` + analysisColumns

	a, err := scanAnalysis(tx.QueryRowContext(ctx, query, now))
	if err == sql.ErrNoRows || a == nil {
		// No pending analyses - this is normal, not an error
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return a, nil
}

// MarkStaleAnalyzingFailed fails analyzing rows older than maxAge. A
// non-positive maxAge fails every analyzing row, which is what a fresh
// process wants: with no worker running yet, all of them are orphans.
func (r *SQLiteAnalysisRepository) MarkStaleAnalyzingFailed(ctx context.Context, maxAge time.Duration) (int64, error) {
	now := time.Now().Format(time.RFC3339)

	query := `
		UPDATE analyses
		SET status = 'failed', error_message = 'analysis interrupted by server restart', updated_at = ?
		WHERE status = 'analyzing'`
	args := []any{now}
	if maxAge > 0 {
		query += " AND updated_at < ?"
		args = append(args, time.Now().Add(-maxAge).Format(time.RFC3339))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale analyses: %w", err)
	}
	return result.RowsAffected()
}

func (r *SQLiteAnalysisRepository) Stats(ctx context.Context) (*AnalysisStats, error) {
	stats := &AnalysisStats{
		ByStatus:        make(map[models.AnalysisStatus]int),
		ByContactStatus: make(map[models.ContactStatus]int),
	}

	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM analyses GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s models.AnalysisStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[s] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := r.db.QueryContext(ctx, "SELECT contact_status, COUNT(*) FROM analyses GROUP BY contact_status")
	if err != nil {
		return nil, fmt.Errorf("failed to count by contact status: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var s models.ContactStatus
		var n int
		if err := crows.Scan(&s, &n); err != nil {
			return nil, err
		}
		stats.ByContactStatus[s] = n
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	// Average total score over completed analyses. json_extract works on the
	// persisted score payload.
	var avg sql.NullFloat64
	err = r.db.QueryRowContext(ctx,
		"SELECT AVG(json_extract(score_json, '$.total')) FROM analyses WHERE status = 'completed'",
	).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	if avg.Valid {
		stats.AverageScore = avg.Float64
	}

	return stats, nil
}

// marshalPayload serializes the embedded audit payload for storage.
func marshalPayload(a *models.AnalysisRecord) (score, details, findings, rec string, err error) {
	if a.Score != nil {
		b, merr := json.Marshal(a.Score)
		if merr != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal score: %w", merr)
		}
		score = string(b)
	}
	if a.Details != nil {
		b, merr := json.Marshal(a.Details)
		if merr != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal details: %w", merr)
		}
		details = string(b)
	}
	if len(a.Findings) > 0 {
		b, merr := json.Marshal(a.Findings)
		if merr != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal findings: %w", merr)
		}
		findings = string(b)
	}
	if a.Recommendation != nil {
		b, merr := json.Marshal(a.Recommendation)
		if merr != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal recommendation: %w", merr)
		}
		rec = string(b)
	}
	return score, details, findings, rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row *sql.Row) (*models.AnalysisRecord, error) {
	a, err := scanAnalysisRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func scanAnalysisFromRows(rows *sql.Rows) (*models.AnalysisRecord, error) {
	return scanAnalysisRow(rows)
}

func scanAnalysisRow(row rowScanner) (*models.AnalysisRecord, error) {
	var a models.AnalysisRecord
	var errorMessage, scoreJSON, detailsJSON, findingsJSON, recJSON sql.NullString
	var contactName, contactEmail, notes sql.NullString
	var emailSent, emailOpened int
	var emailSentAt, emailOpenedAt, analyzedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&a.ID, &a.URL, &a.Domain, &a.BusinessCategory, &a.Status, &a.Locale, &errorMessage,
		&scoreJSON, &detailsJSON, &findingsJSON, &recJSON,
		&contactName, &contactEmail, &a.ContactStatus,
		&emailSent, &emailSentAt, &emailOpened, &emailOpenedAt, &notes,
		&createdAt, &updatedAt, &analyzedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	// Closed enums fail fast on invalid stored values rather than letting a
	// bad shape flow into scoring or the API.
	if !models.ValidAnalysisStatus(a.Status) {
		return nil, fmt.Errorf("analysis %s has invalid status %q", a.ID, a.Status)
	}
	if !models.ValidBusinessCategory(a.BusinessCategory) {
		return nil, fmt.Errorf("analysis %s has invalid business category %q", a.ID, a.BusinessCategory)
	}
	if !models.ValidContactStatus(a.ContactStatus) {
		return nil, fmt.Errorf("analysis %s has invalid contact status %q", a.ID, a.ContactStatus)
	}

	a.ErrorMessage = errorMessage.String
	a.ContactName = contactName.String
	a.ContactEmail = contactEmail.String
	a.Notes = notes.String
	a.EmailSent = emailSent != 0
	a.EmailOpened = emailOpened != 0
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	a.EmailSentAt = parseNullTime(emailSentAt)
	a.EmailOpenedAt = parseNullTime(emailOpenedAt)
	a.AnalyzedAt = parseNullTime(analyzedAt)

	if scoreJSON.Valid && scoreJSON.String != "" {
		var score models.ScoreBreakdown
		if err := json.Unmarshal([]byte(scoreJSON.String), &score); err != nil {
			return nil, fmt.Errorf("analysis %s has invalid score payload: %w", a.ID, err)
		}
		if err := score.Validate(); err != nil {
			return nil, fmt.Errorf("analysis %s has invalid score payload: %w", a.ID, err)
		}
		a.Score = &score
	}
	if detailsJSON.Valid && detailsJSON.String != "" {
		var details models.AnalysisDetails
		if err := json.Unmarshal([]byte(detailsJSON.String), &details); err != nil {
			return nil, fmt.Errorf("analysis %s has invalid details payload: %w", a.ID, err)
		}
		a.Details = &details
	}
	if findingsJSON.Valid && findingsJSON.String != "" {
		if err := json.Unmarshal([]byte(findingsJSON.String), &a.Findings); err != nil {
			return nil, fmt.Errorf("analysis %s has invalid findings payload: %w", a.ID, err)
		}
		for _, f := range a.Findings {
			if !models.ValidFindingSeverity(f.Severity) {
				return nil, fmt.Errorf("analysis %s has invalid finding severity %q", a.ID, f.Severity)
			}
		}
	}
	if recJSON.Valid && recJSON.String != "" {
		var rec models.Recommendation
		if err := json.Unmarshal([]byte(recJSON.String), &rec); err != nil {
			return nil, fmt.Errorf("analysis %s has invalid recommendation payload: %w", a.ID, err)
		}
		if !models.ValidPackageTier(rec.PackageTier) {
			return nil, fmt.Errorf("analysis %s has invalid package tier %q", a.ID, rec.PackageTier)
		}
		a.Recommendation = &rec
	}

	return &a, nil
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullString converts empty strings to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime converts nil times to NULL, otherwise RFC3339 text.
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
