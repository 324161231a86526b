package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	storeDBName = "winfit.db"

	// PrefsStampName is touched after every preference write so watchers
	// can tell preference changes from status churn.
	PrefsStampName = ".prefs-stamp"
)

// EncryptedStore implements domain.PreferenceStore and domain.StatusRegistry
// using a SQLCipher encrypted SQLite database.
type EncryptedStore struct {
	db        *sql.DB
	dbPath    string
	stampPath string
	now       func() time.Time
}

// NewEncryptedStore opens (or creates) the encrypted store in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, storeDBName)
	keyHex := hex.EncodeToString(key)

	// Daemon and CLI share the file, so wait on locks instead of failing
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096&_busy_timeout=5000", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only shows up on first use
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{
		db:        db,
		dbPath:    dbPath,
		stampPath: filepath.Join(dataDir, PrefsStampName),
		now:       time.Now,
	}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the schema if it doesn't exist.
func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daemon_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pid INTEGER NOT NULL,
		monitoring INTEGER NOT NULL,
		permission INTEGER NOT NULL,
		user_stopped INTEGER NOT NULL,
		last_heartbeat INTEGER NOT NULL,
		app_version TEXT DEFAULT '',
		last_app TEXT DEFAULT '',
		last_outcome TEXT DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- domain.PreferenceStore implementation ---

// Get returns the value for key and whether it was set.
func (s *EncryptedStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *EncryptedStore) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO prefs (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write preference %q: %w", key, err)
	}
	s.touchStamp()
	return nil
}

// Delete removes key.
func (s *EncryptedStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete preference %q: %w", key, err)
	}
	s.touchStamp()
	return nil
}

// All returns every stored preference.
func (s *EncryptedStore) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM prefs`)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

// touchStamp marks a preference change. A failure only delays the daemon
// until its periodic reload.
func (s *EncryptedStore) touchStamp() {
	_ = os.WriteFile(s.stampPath, []byte(s.now().Format(time.RFC3339Nano)), 0600)
}

// --- domain.StatusRegistry implementation ---

// Publish saves the daemon status snapshot.
func (s *EncryptedStore) Publish(status domain.Status) error {
	heartbeat := status.LastHeartbeat
	if heartbeat == 0 {
		heartbeat = s.now().Unix()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO daemon_state
			(id, pid, monitoring, permission, user_stopped, last_heartbeat, app_version, last_app, last_outcome)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		status.PID, int(status.Monitoring), int(status.Permission), status.UserStopped,
		heartbeat, status.AppVersion, status.LastApp, string(status.LastOutcome),
	)
	if err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// UpdateHeartbeat updates timestamp for liveness check.
func (s *EncryptedStore) UpdateHeartbeat() error {
	result, err := s.db.Exec(`UPDATE daemon_state SET last_heartbeat = ? WHERE id = 1`, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.New("daemon status not published")
	}
	return nil
}

// Current returns the last published status, or nil if none.
func (s *EncryptedStore) Current() (*domain.Status, error) {
	var (
		status      domain.Status
		monitoring  int
		permission  int
		lastOutcome string
	)
	err := s.db.QueryRow(`
		SELECT pid, monitoring, permission, user_stopped, last_heartbeat, app_version, last_app, last_outcome
		FROM daemon_state WHERE id = 1`).Scan(
		&status.PID, &monitoring, &permission, &status.UserStopped,
		&status.LastHeartbeat, &status.AppVersion, &status.LastApp, &lastOutcome,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	status.Monitoring = domain.MonitoringState(monitoring)
	status.Permission = domain.PermissionState(permission)
	status.LastOutcome = domain.ReconcileOutcome(lastOutcome)
	return &status, nil
}

// Clear removes the published status.
func (s *EncryptedStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM daemon_state`); err != nil {
		return fmt.Errorf("failed to clear status: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedStore implements both interfaces.
var (
	_ domain.PreferenceStore = (*EncryptedStore)(nil)
	_ domain.StatusRegistry  = (*EncryptedStore)(nil)
)
