package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/bshape/internal/models"
)

// ErrNotFound is returned when no submission has the requested id.
var ErrNotFound = errors.New("submission not found")

// UnknownAddress is recorded when the client address cannot be determined.
const UnknownAddress = "unknown"

// LocalAddress is recorded for submissions written directly by the CLI.
const LocalAddress = "local"

// timeLayout is fixed-width so submitted_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one stored assessment.
type Record struct {
	ID           string
	SessionID    string
	SubmittedAt  time.Time
	IPAddress    string
	PartnerLevel models.RiskLevel
	PartnerScore *int
	InLawsLevel  models.RiskLevel
	FamilyLevel  models.RiskLevel
	Session      *models.Session
}

// Levels returns the stored level of every scored section.
func (r *Record) Levels() map[models.Section]models.RiskLevel {
	levels := make(map[models.Section]models.RiskLevel)
	if r.PartnerLevel != "" {
		levels[models.SectionPartner] = r.PartnerLevel
	}
	if r.InLawsLevel != "" {
		levels[models.SectionInLaws] = r.InLawsLevel
	}
	if r.FamilyLevel != "" {
		levels[models.SectionFamily] = r.FamilyLevel
	}
	return levels
}

// Store persists submitted assessments in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
	newID  func() string
}

// NewStore opens (creating if needed) the database at dbPath and applies migrations.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	// busy_timeout must come first so the rest wait on locks
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry retries statements that fail with "database is locked".
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert stores a session snapshot, stamping the id, submission time and client address.
func (s *Store) Insert(ctx context.Context, sess *models.Session, ipAddress string) (*Record, error) {
	if sess == nil {
		return nil, fmt.Errorf("insert submission: nil session")
	}
	if ipAddress == "" {
		ipAddress = UnknownAddress
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	rec := &Record{
		ID:           s.newID(),
		SessionID:    sess.ID,
		SubmittedAt:  s.now().UTC(),
		IPAddress:    ipAddress,
		PartnerLevel: sess.Results.Partner,
		PartnerScore: sess.Scores.Partner,
		InLawsLevel:  sess.Results.InLaws,
		FamilyLevel:  sess.Results.Family,
		Session:      sess.Clone(),
	}

	var partnerScore sql.NullInt64
	if rec.PartnerScore != nil {
		partnerScore = sql.NullInt64{Int64: int64(*rec.PartnerScore), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO submissions
		(id, session_id, submitted_at, ip_address, partner_level, partner_score, inlaws_level, family_level, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.SessionID,
		rec.SubmittedAt.Format(timeLayout),
		rec.IPAddress,
		string(rec.PartnerLevel),
		partnerScore,
		string(rec.InLawsLevel),
		string(rec.FamilyLevel),
		string(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return rec, nil
}

// Submit stores the snapshot as a local submission and returns its id.
func (s *Store) Submit(ctx context.Context, sess *models.Session) (string, error) {
	rec, err := s.Insert(ctx, sess, LocalAddress)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

const selectColumns = `SELECT id, session_id, submitted_at, ip_address, partner_level, partner_score, inlaws_level, family_level, payload FROM submissions`

// Get returns the submission with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns submissions newest first. A limit <= 0 returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := selectColumns + ` ORDER BY submitted_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return records, nil
}

// Count returns the number of stored submissions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	rec := &Record{}
	var submittedAt, payload string
	var partnerLevel, inLawsLevel, familyLevel sql.NullString
	var partnerScore sql.NullInt64

	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&submittedAt,
		&rec.IPAddress,
		&partnerLevel,
		&partnerScore,
		&inLawsLevel,
		&familyLevel,
		&payload,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	rec.SubmittedAt, err = time.Parse(timeLayout, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("parse submitted_at for %s: %w", rec.ID, err)
	}
	rec.PartnerLevel = models.RiskLevel(partnerLevel.String)
	rec.InLawsLevel = models.RiskLevel(inLawsLevel.String)
	rec.FamilyLevel = models.RiskLevel(familyLevel.String)
	if partnerScore.Valid {
		score := int(partnerScore.Int64)
		rec.PartnerScore = &score
	}

	rec.Session = &models.Session{}
	if err := json.Unmarshal([]byte(payload), rec.Session); err != nil {
		return nil, fmt.Errorf("unmarshal payload for %s: %w", rec.ID, err)
	}
	return rec, nil
}
