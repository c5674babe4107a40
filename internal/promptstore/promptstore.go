// Package promptstore persists prompt text locally, keyed by content
// digest. Notes carry only digests; the bodies stay in a SQLite database
// under the repository's state directory and never leave the machine.
package promptstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"aiblame/internal/config"
	aberr "aiblame/internal/errors"
	"aiblame/internal/logging"
)

const (
	dbFileName = "prompts.db"

	compressionNone = "none"
	compressionZstd = "zstd"

	currentSchemaVersion = 1
)

// Store is the prompt database handle.
type Store struct {
	conn      *sql.DB
	logger    *logging.Logger
	dbPath    string
	threshold int

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open opens or creates the prompt store for a git directory.
func Open(gitDir string, cfg *config.Config, logger *logging.Logger) (*Store, error) {
	stateDir := config.StateDir(gitDir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, aberr.New(aberr.InternalError, "cannot create state directory", err)
	}

	dbPath := filepath.Join(stateDir, dbFileName)
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, aberr.New(aberr.InternalError, "cannot open prompt database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, aberr.New(aberr.InternalError, "cannot configure prompt database", err)
		}
	}

	threshold := 4096
	if cfg != nil && cfg.Prompts.CompressionThresholdBytes > 0 {
		threshold = cfg.Prompts.CompressionThresholdBytes
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		conn.Close()
		return nil, aberr.New(aberr.InternalError, "cannot create prompt compressor", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		conn.Close()
		return nil, aberr.New(aberr.InternalError, "cannot create prompt decompressor", err)
	}

	store := &Store{
		conn:      conn,
		logger:    logger,
		dbPath:    dbPath,
		threshold: threshold,
		encoder:   encoder,
		decoder:   decoder,
	}

	if !dbExists {
		logger.Debug("Creating prompt database", map[string]interface{}{"path": dbPath})
		if err := store.initializeSchema(); err != nil {
			store.Close()
			return nil, err
		}
	} else if err := store.checkSchemaVersion(); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the database and codec resources.
func (s *Store) Close() error {
	if s.encoder != nil {
		s.encoder.Close()
		s.encoder = nil
	}
	if s.decoder != nil {
		s.decoder.Close()
		s.decoder = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (s *Store) WithTx(fn func(*sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return aberr.New(aberr.InternalError, "cannot begin prompt transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback prompt transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return aberr.New(aberr.InternalError, "cannot commit prompt transaction", err)
	}
	return nil
}

func (s *Store) initializeSchema() error {
	return s.WithTx(func(tx *sql.Tx) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS prompts (
				digest TEXT PRIMARY KEY,
				body BLOB NOT NULL,
				compression TEXT NOT NULL DEFAULT 'none',
				size INTEGER NOT NULL,
				tool TEXT,
				session_id TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_prompts_session ON prompts(session_id)`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return aberr.New(aberr.InternalError, "cannot create prompt schema", err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion); err != nil {
			return aberr.New(aberr.InternalError, "cannot record schema version", err)
		}
		return nil
	})
}

func (s *Store) checkSchemaVersion() error {
	var version int
	err := s.conn.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		return aberr.New(aberr.InternalError, "cannot read prompt schema version", err)
	}
	if version > currentSchemaVersion {
		return aberr.Newf(aberr.InternalError, nil,
			"prompt database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	return nil
}

// Put stores prompt text and returns its digest. Storing the same text
// again is a no-op; the first write wins.
func (s *Store) Put(ctx context.Context, text, tool, sessionID string, capturedAt time.Time) (string, error) {
	digest := Digest(text)

	body := []byte(text)
	compression := compressionNone
	if len(body) >= s.threshold {
		body = s.encoder.EncodeAll(body, nil)
		compression = compressionZstd
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO prompts (digest, body, compression, size, tool, session_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		digest, body, compression, len(text), tool, sessionID,
		capturedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", aberr.New(aberr.InternalError, "cannot store prompt", err)
	}

	s.logger.Debug("stored prompt", map[string]interface{}{
		"digest":      digest,
		"bytes":       len(text),
		"compression": compression,
	})
	return digest, nil
}

// Get returns the prompt text for a digest.
func (s *Store) Get(ctx context.Context, digest string) (string, error) {
	var body []byte
	var compression string
	err := s.conn.QueryRowContext(ctx,
		`SELECT body, compression FROM prompts WHERE digest = ?`, digest).
		Scan(&body, &compression)
	if err == sql.ErrNoRows {
		return "", aberr.Newf(aberr.PromptMissing, nil, "no prompt stored for digest %s", digest)
	}
	if err != nil {
		return "", aberr.New(aberr.InternalError, "cannot read prompt", err)
	}

	switch compression {
	case compressionZstd:
		decoded, err := s.decoder.DecodeAll(body, nil)
		if err != nil {
			return "", aberr.New(aberr.InternalError, "cannot decompress prompt", err)
		}
		return string(decoded), nil
	default:
		return string(body), nil
	}
}

// Count returns the number of stored prompts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&n); err != nil {
		return 0, aberr.New(aberr.InternalError, "cannot count prompts", err)
	}
	return n, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
