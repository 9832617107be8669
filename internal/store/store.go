package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// registrationTTL is how long a written client-registration companion is
// advertised as valid to the consuming application.
const registrationTTL = 90 * 24 * time.Hour

// Store owns account records plus the two fixed-location units the
// consuming application reads: the active-session slot and the companion
// client registrations.
type Store struct {
	backend          Backend
	sessionPath      string
	registrationsDir string
	backupsDir       string
}

// New creates a store over backend. sessionPath is the consuming
// application's credential slot; registrationsDir holds the companion
// records keyed by client-ID hash; backupsDir receives timestamped copies
// of the session slot before every overwrite.
func New(backend Backend, sessionPath, registrationsDir, backupsDir string) *Store {
	return &Store{
		backend:          backend,
		sessionPath:      sessionPath,
		registrationsDir: registrationsDir,
		backupsDir:       backupsDir,
	}
}

// List returns all accounts, active-first then lexicographic. It never
// fails: missing storage and unreadable records degrade to fewer entries.
func (s *Store) List() []AccountRecord {
	names, err := s.backend.List()
	if err != nil {
		log.Printf("⚠️ Listing accounts failed: %v", err)
		return nil
	}

	active := s.ActiveAccountName()

	records := make([]AccountRecord, 0, len(names))
	var activeRecord *AccountRecord
	for _, name := range names {
		rec, err := s.Get(name)
		if err != nil {
			log.Printf("⚠️ Skipping unreadable account %q: %v", name, err)
			continue
		}
		if rec.AccountName == active {
			activeRecord = rec
			continue
		}
		records = append(records, *rec)
	}

	if activeRecord != nil {
		records = append([]AccountRecord{*activeRecord}, records...)
	}
	return records
}

// Get returns the record for name, or ErrNotFound.
func (s *Store) Get(name string) (*AccountRecord, error) {
	data, err := s.backend.Get(name)
	if err != nil {
		return nil, err
	}
	var rec AccountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode account %q: %w", name, err)
	}
	if rec.AccountName == "" {
		rec.AccountName = name
	}
	return &rec, nil
}

// Save fully overwrites the record and refreshes its companion client
// registration so the consuming application can run its own refreshes.
func (s *Store) Save(rec *AccountRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account %q: %w", rec.AccountName, err)
	}
	if err := s.backend.Put(rec.AccountName, data); err != nil {
		return err
	}

	if rec.ClientID != "" {
		if err := s.writeRegistration(rec); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the record. Deleting an absent account is a no-op, not an
// error. Derived statistics are the caller's to purge.
func (s *Store) Delete(name string) error {
	return s.backend.Delete(name)
}

// ActiveAccountName resolves which stored account currently occupies the
// active-session slot, or "" when none does. Accounts with a client
// registration are matched by client-ID hash, the rest by access token.
func (s *Store) ActiveAccountName() string {
	sess, err := s.ActiveSession()
	if err != nil {
		return ""
	}

	names, err := s.backend.List()
	if err != nil {
		return ""
	}
	for _, name := range names {
		rec, err := s.Get(name)
		if err != nil {
			continue
		}
		if hash := rec.ClientIDHash(); hash != "" && hash == sess.ClientIDHash {
			return name
		}
		if rec.AccessToken != "" && rec.AccessToken == sess.AccessToken {
			return name
		}
	}
	return ""
}

// ActiveSession reads the current session slot, or ErrNotFound when nothing
// has been activated yet.
func (s *Store) ActiveSession() (*ActiveSession, error) {
	data, err := os.ReadFile(s.sessionPath)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read active session: %w", err)
	}
	var sess ActiveSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode active session: %w", err)
	}
	return &sess, nil
}

// WriteActiveSession atomically replaces the session slot. The previous
// contents are backed up first with a timestamped name; backups are never
// pruned automatically.
func (s *Store) WriteActiveSession(sess *ActiveSession) error {
	if err := s.backupActiveSession(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode active session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.sessionPath), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return atomicWrite(s.sessionPath, data)
}

func (s *Store) backupActiveSession() error {
	prev, err := os.ReadFile(s.sessionPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session for backup: %w", err)
	}

	if err := os.MkdirAll(s.backupsDir, 0o700); err != nil {
		return fmt.Errorf("create backups dir: %w", err)
	}
	name := fmt.Sprintf("active-session-%s-%s.json",
		time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	if err := atomicWrite(filepath.Join(s.backupsDir, name), prev); err != nil {
		return fmt.Errorf("back up active session: %w", err)
	}
	log.Printf("🗂️ Backed up active session to %s", name)
	return nil
}

func (s *Store) writeRegistration(rec *AccountRecord) error {
	if err := os.MkdirAll(s.registrationsDir, 0o700); err != nil {
		return fmt.Errorf("create registrations dir: %w", err)
	}
	reg := ClientRegistration{
		ClientID:     rec.ClientID,
		ClientSecret: rec.ClientSecret,
		ExpiresAt:    time.Now().Add(registrationTTL),
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}
	path := filepath.Join(s.registrationsDir, rec.ClientIDHash()+".json")
	return atomicWrite(path, data)
}
