package chirp

import (
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// credentialName is the single fixed key under which the bearer token lives.
const credentialName = "auth_token"

// CredentialStore holds the bearer credential across app restarts.
// Absent means unauthenticated, including when the backing store is broken.
type CredentialStore interface {
	Token() (string, bool)
	SetToken(token string) error
	ClearToken() error
}

// Credential is the one persisted row.
type Credential struct {
	Name  string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

// SQLCredentialStore persists the credential in a local sqlite file. After a
// successful SetToken the value is served from an in-process copy, so a later
// Token in the same process can never see a stale read.
type SQLCredentialStore struct {
	mu     sync.Mutex
	db     *gorm.DB
	cached string
	loaded bool
}

// OpenCredentialStore opens and migrates the credential database. CHIRP_DB
// overrides the default location.
func OpenCredentialStore() (*SQLCredentialStore, error) {
	return openCredentialStore(envOr("CHIRP_DB", "chirp.db"))
}

func openCredentialStore(path string) (*SQLCredentialStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		logger.WithError(err).Error("Failed to open credential database")
		return nil, err
	}
	if err := db.AutoMigrate(&Credential{}); err != nil {
		logger.WithError(err).Error("Failed to migrate credential schema")
		return nil, err
	}
	return &SQLCredentialStore{db: db}, nil
}

// Token returns the stored credential. Any read failure is reported as
// absent: callers treat that as "not logged in", never as fatal.
func (s *SQLCredentialStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.cached, s.cached != ""
	}

	var cred Credential
	err := s.db.Where("name = ?", credentialName).First(&cred).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.WithError(err).Warn("Failed to read stored credential")
		}
		return "", false
	}

	s.cached = cred.Value
	s.loaded = true
	return s.cached, s.cached != ""
}

// SetToken commits the credential. The in-process copy is only updated once
// the write went through, so a failed commit leaves Token unchanged.
func (s *SQLCredentialStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred := Credential{Name: credentialName, Value: token}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&cred).Error; err != nil {
		logger.WithError(err).Error("Failed to persist credential")
		return err
	}

	s.cached = token
	s.loaded = true
	return nil
}

// ClearToken destroys the stored credential, logging the user out.
func (s *SQLCredentialStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Where("name = ?", credentialName).Delete(&Credential{}).Error; err != nil {
		logger.WithError(err).Error("Failed to clear credential")
		return err
	}

	s.cached = ""
	s.loaded = true
	return nil
}

// MemoryCredentialStore keeps the credential for the process lifetime only.
// Used in tests and on hosts without writable storage.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryCredentialStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *MemoryCredentialStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryCredentialStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
