// Package store persists audit results as filesystem artifacts with a
// SQLite index for listing. The artifact directories are the source of
// truth; the index can always be rebuilt from them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/logging"
)

const (
	summaryFile    = "summary.json"
	violationsFile = "violations.json"
	indexFile      = "runs.db"
	stagingPrefix  = ".stage-"
)

// Artifact describes a persisted run on disk.
type Artifact struct {
	RunID          string
	Dir            string
	SummaryPath    string
	ViolationsPath string
}

// Store saves and loads run artifacts under <dataDir>/runs.
type Store struct {
	runsDir string
	db      *sql.DB
	log     logging.Logger

	// Guards run ID generation so concurrent saves never collide.
	mu sync.Mutex
}

// Open prepares the runs directory and its index.
func Open(dataDir string, log logging.Logger) (*Store, error) {
	const op = "store.Open"

	runsDir := filepath.Join(dataDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, errors.E(errors.KindStoreWrite, op, "create runs dir", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, indexFile))
	if err != nil {
		return nil, errors.E(errors.KindStoreWrite, op, "open index", err)
	}
	// modernc's driver serializes writes itself but a single connection
	// avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		target      TEXT NOT NULL,
		score       INTEGER NOT NULL,
		status      TEXT NOT NULL,
		violations  INTEGER NOT NULL,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, errors.E(errors.KindStoreWrite, op, "create index schema", err)
	}

	return &Store{runsDir: runsDir, db: db, log: logging.OrNop(log)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RunsDir exposes the artifact root for the retention sweeper.
func (s *Store) RunsDir() string { return s.runsDir }

// newRunID derives an identifier from the submission time plus a random
// disambiguator, collision-checked against existing artifact directories.
func (s *Store) newRunID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id := fmt.Sprintf("%s-%s", at.UTC().Format("20060102T150405"), uuid.NewString()[:8])
		if _, err := os.Stat(filepath.Join(s.runsDir, id)); os.IsNotExist(err) {
			return id
		}
	}
}

// Save writes the full artifact atomically: both files land in a staging
// directory which is renamed into place, so a partially written run is never
// observable under its final identifier.
func (s *Store) Save(ctx context.Context, result *audit.Result) (*Artifact, error) {
	const op = "store.Save"

	if result.RunID == "" {
		at := result.StartedAt
		if at.IsZero() {
			at = time.Now()
		}
		result.RunID = s.newRunID(at)
	}

	finalDir := filepath.Join(s.runsDir, result.RunID)
	stageDir := filepath.Join(s.runsDir, stagingPrefix+result.RunID)

	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return nil, errors.E(errors.KindStoreWrite, op, "create staging dir", err)
	}
	cleanup := func() { _ = os.RemoveAll(stageDir) }

	if err := writeJSON(filepath.Join(stageDir, summaryFile), result.Summarize()); err != nil {
		cleanup()
		return nil, errors.E(errors.KindStoreWrite, op, "write summary", err)
	}
	if err := writeJSON(filepath.Join(stageDir, violationsFile), result); err != nil {
		cleanup()
		return nil, errors.E(errors.KindStoreWrite, op, "write violations", err)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return nil, errors.E(errors.KindStoreWrite, op, "save cancelled", err)
	}
	if err := os.Rename(stageDir, finalDir); err != nil {
		cleanup()
		return nil, errors.E(errors.KindStoreWrite, op, "publish artifact", err)
	}

	if err := s.indexRun(ctx, result); err != nil {
		return nil, err
	}

	s.log.Info("saved run %s (%s, score=%d, status=%s)", result.RunID, result.Target.Kind, result.Score, result.Status)
	return &Artifact{
		RunID:          result.RunID,
		Dir:            finalDir,
		SummaryPath:    filepath.Join(finalDir, summaryFile),
		ViolationsPath: filepath.Join(finalDir, violationsFile),
	}, nil
}

func (s *Store) indexRun(ctx context.Context, result *audit.Result) error {
	sum := result.Summarize()
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(run_id, kind, target, score, status, violations, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, string(sum.Kind), sum.Target, sum.Score, string(sum.Status),
		sum.Violations, sum.StartedAt.UnixNano(), sum.FinishedAt.UnixNano())
	if err != nil {
		return errors.E(errors.KindStoreWrite, "store.Save", "index run", err)
	}
	return nil
}

// Load reads a run back from its artifact directory.
func (s *Store) Load(runID string) (*audit.Result, error) {
	const op = "store.Load"

	if !validRunID(runID) {
		return nil, errors.E(errors.KindNotFound, op, fmt.Sprintf("no run %q", runID))
	}
	data, err := os.ReadFile(filepath.Join(s.runsDir, runID, violationsFile))
	if os.IsNotExist(err) {
		return nil, errors.E(errors.KindNotFound, op, fmt.Sprintf("no run %q", runID))
	}
	if err != nil {
		return nil, errors.E(op, "read artifact", err)
	}

	var result audit.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.E(op, "decode artifact", err)
	}
	return &result, nil
}

// List returns run summaries newest first. A zero since returns everything.
func (s *Store) List(ctx context.Context, since time.Time) ([]audit.Summary, error) {
	const op = "store.List"

	cutoff := int64(0)
	if !since.IsZero() {
		cutoff = since.UnixNano()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, kind, target, score, status, violations, started_at, finished_at
		FROM runs WHERE started_at >= ? ORDER BY started_at DESC, run_id DESC`, cutoff)
	if err != nil {
		return nil, errors.E(op, "query index", err)
	}
	defer rows.Close()

	var out []audit.Summary
	for rows.Next() {
		var sum audit.Summary
		var kind, status string
		var startedNs, finishedNs int64
		if err := rows.Scan(&sum.RunID, &kind, &sum.Target, &sum.Score, &status,
			&sum.Violations, &startedNs, &finishedNs); err != nil {
			return nil, errors.E(op, "scan row", err)
		}
		sum.Kind = audit.Kind(kind)
		sum.Status = audit.Status(status)
		sum.StartedAt = time.Unix(0, startedNs).UTC()
		sum.FinishedAt = time.Unix(0, finishedNs).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Forget drops a run from the index after its artifact directory has been
// pruned.
func (s *Store) Forget(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	return err
}

// Rebuild repopulates the index from the artifact directories, for recovery
// after an index file is lost or damaged.
func (s *Store) Rebuild(ctx context.Context) error {
	const op = "store.Rebuild"

	entries, err := os.ReadDir(s.runsDir)
	if err != nil {
		return errors.E(op, "read runs dir", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return errors.E(errors.KindStoreWrite, op, "clear index", err)
	}

	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), stagingPrefix) {
			continue
		}
		result, err := s.Load(e.Name())
		if err != nil {
			s.log.Warn("rebuild: skipping %s: %v", e.Name(), err)
			continue
		}
		if err := s.indexRun(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

func validRunID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".." &&
		!strings.HasPrefix(id, stagingPrefix)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
