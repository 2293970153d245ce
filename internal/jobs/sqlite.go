package jobs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/renovatehq/sowgen/pkg/models"
)

// SQLiteStore persists jobs, documents and analyses in a single SQLite file.
// Pipeline payloads are stored as JSON blobs; the relational columns carry
// only what queries filter and guard on.
type SQLiteStore struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultDBPath returns the default database location.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "sowgen", "sowgen.db")
}

// OpenSQLite opens (creating if needed) the store at the given path and
// applies pending migrations. WAL mode is enabled for concurrent reads.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Jobs},
		{2, migrationV2Documents},
		{3, migrationV3Reviews},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Jobs = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'queued',
	progress INTEGER NOT NULL DEFAULT 0,
	stage TEXT,
	started_at DATETIME NOT NULL,
	completed_at DATETIME,
	error TEXT,
	result TEXT,
	seq INTEGER
);

CREATE INDEX IF NOT EXISTS idx_jobs_project_id ON jobs(project_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

const migrationV2Documents = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	context TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	doc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_project_id ON documents(project_id);
`

const migrationV3Reviews = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	analysis TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_project_id ON analyses(project_id);
`

// CreateJob implements Store.
func (s *SQLiteStore) CreateJob(job *models.SoWGenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := marshalNullable(job.Result)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(`
		INSERT INTO jobs (id, project_id, status, progress, stage, started_at, completed_at, error, result, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM jobs))
	`, job.ID, job.ProjectID, string(job.Status), job.Progress, job.Stage,
		formatTime(job.StartedAt), formatNullableTime(job.CompletedAt), job.Error, result)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob implements Store.
func (s *SQLiteStore) GetJob(id string) (*models.SoWGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRow(`
		SELECT id, project_id, status, progress, stage, started_at, completed_at, error, result
		FROM jobs WHERE id = ?
	`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ProjectJobs implements Store.
func (s *SQLiteStore) ProjectJobs(projectID string) ([]models.SoWGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT id, project_id, status, progress, stage, started_at, completed_at, error, result
		FROM jobs WHERE project_id = ? ORDER BY seq
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project jobs: %w", err)
	}
	defer rows.Close()

	var out []models.SoWGenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// UpdateJob implements Store. The guard is enforced inside the UPDATE so a
// concurrent transition cannot slip between read and write, and progress is
// taken as MAX(stored, incoming) so a stale snapshot never rolls it back.
func (s *SQLiteStore) UpdateJob(job *models.SoWGenerationJob, allowed ...models.JobStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := marshalNullable(job.Result)
	if err != nil {
		return false, err
	}

	placeholders := make([]string, len(allowed))
	args := []any{
		string(job.Status), job.Progress, job.Stage,
		formatNullableTime(job.CompletedAt), job.Error, result, job.ID,
	}
	for i, a := range allowed {
		placeholders[i] = "?"
		args = append(args, string(a))
	}

	res, err := s.conn.Exec(fmt.Sprintf(`
		UPDATE jobs SET status = ?, progress = MAX(progress, ?), stage = ?, completed_at = ?, error = ?, result = ?
		WHERE id = ? AND status IN (%s)
	`, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return false, fmt.Errorf("update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// SaveProject implements Store.
func (s *SQLiteStore) SaveProject(project models.ProjectContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO projects (id, context) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET context = excluded.context
	`, project.ProjectID, string(data))
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// Project implements Store.
func (s *SQLiteStore) Project(projectID string) (*models.ProjectContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.conn.QueryRow("SELECT context FROM projects WHERE id = ?", projectID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	var project models.ProjectContext
	if err := json.Unmarshal([]byte(data), &project); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return &project, nil
}

// SaveDocument implements Store. The version is derived from the stored
// maximum inside one transaction so concurrent saves for a project get
// distinct, consecutive versions.
func (s *SQLiteStore) SaveDocument(doc models.SoWDocument) (models.SoWDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return models.SoWDocument{}, fmt.Errorf("begin transaction: %w", err)
	}
	if err := tx.QueryRow(`
		SELECT COALESCE(MAX(version), 0) + 1 FROM documents WHERE project_id = ?
	`, doc.ProjectID).Scan(&doc.Version); err != nil {
		tx.Rollback()
		return models.SoWDocument{}, fmt.Errorf("next document version: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		tx.Rollback()
		return models.SoWDocument{}, fmt.Errorf("marshal document: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO documents (id, project_id, version, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, version = excluded.version
	`, doc.ID, doc.ProjectID, doc.Version, string(data)); err != nil {
		tx.Rollback()
		return models.SoWDocument{}, fmt.Errorf("save document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.SoWDocument{}, fmt.Errorf("commit document: %w", err)
	}
	return doc, nil
}

// Document implements Store.
func (s *SQLiteStore) Document(id string) (*models.SoWDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanDocument(s.conn.QueryRow("SELECT doc FROM documents WHERE id = ?", id))
}

// LatestDocument implements Store.
func (s *SQLiteStore) LatestDocument(projectID string) (*models.SoWDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanDocument(s.conn.QueryRow(`
		SELECT doc FROM documents WHERE project_id = ? ORDER BY version DESC LIMIT 1
	`, projectID))
}

func (s *SQLiteStore) scanDocument(row *sql.Row) (*models.SoWDocument, error) {
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	var doc models.SoWDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

// SaveAnalysis implements Store.
func (s *SQLiteStore) SaveAnalysis(analysis *models.BuilderReviewAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO analyses (id, project_id, created_at, analysis) VALUES (?, ?, ?, ?)
	`, analysis.ID, analysis.ProjectID, formatTime(analysis.CreatedAt), string(data))
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// LatestAnalysis implements Store.
func (s *SQLiteStore) LatestAnalysis(projectID string) (*models.BuilderReviewAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.conn.QueryRow(`
		SELECT analysis FROM analyses WHERE project_id = ? ORDER BY created_at DESC LIMIT 1
	`, projectID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	var analysis models.BuilderReviewAnalysis
	if err := json.Unmarshal([]byte(data), &analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &analysis, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.SoWGenerationJob, error) {
	var (
		job         models.SoWGenerationJob
		status      string
		startedAt   string
		completedAt sql.NullString
		stage       sql.NullString
		errMsg      sql.NullString
		result      sql.NullString
	)
	err := row.Scan(&job.ID, &job.ProjectID, &status, &job.Progress, &stage,
		&startedAt, &completedAt, &errMsg, &result)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.Stage = stage.String
	job.Error = errMsg.String
	if job.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	job.CompletedAt = parseNullableTime(completedAt)
	if result.Valid && result.String != "" {
		var r models.GenerationResult
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &r
	}
	return &job, nil
}

func marshalNullable(v *models.GenerationResult) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}

var _ Store = (*SQLiteStore)(nil)
