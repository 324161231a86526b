package infra

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

const (
	keyFileName = ".key"
	keySize     = 32 // 256-bit SQLCipher key

	// KeychainService and KeychainAccount name the Keychain item holding the store key.
	KeychainService = "com.focusd.winfit"
	KeychainAccount = "store-key"
)

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return key, nil
}

func checkKeySize(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return nil
}

// KeychainKeyProvider implements domain.KeyProvider with the login Keychain.
type KeychainKeyProvider struct {
	service string
	account string
}

// NewKeychainKeyProvider creates a provider for the default Keychain item.
func NewKeychainKeyProvider() *KeychainKeyProvider {
	return &KeychainKeyProvider{service: KeychainService, account: KeychainAccount}
}

// GetKey reads the key from the Keychain.
func (p *KeychainKeyProvider) GetKey() ([]byte, error) {
	encoded, err := keyring.Get(p.service, p.account)
	if err != nil {
		return nil, fmt.Errorf("failed to read key from keychain: %w", err)
	}
	return decodeKey(encoded)
}

// StoreKey writes the key to the Keychain.
func (p *KeychainKeyProvider) StoreKey(key []byte) error {
	if err := checkKeySize(key); err != nil {
		return err
	}
	if err := keyring.Set(p.service, p.account, base64.StdEncoding.EncodeToString(key)); err != nil {
		return fmt.Errorf("failed to write key to keychain: %w", err)
	}
	return nil
}

// KeyExists is false only when the Keychain answers that the item is
// missing. Any other failure (locked keychain, no user interaction allowed
// at login) may be hiding an existing key, so it counts as present and
// GetKey surfaces the error.
func (p *KeychainKeyProvider) KeyExists() bool {
	_, err := keyring.Get(p.service, p.account)
	return !errors.Is(err, keyring.ErrNotFound)
}

// Delete removes the Keychain item. A missing item is not an error.
func (p *KeychainKeyProvider) Delete() error {
	if err := keyring.Delete(p.service, p.account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete key from keychain: %w", err)
	}
	return nil
}

// FileKeyProvider implements domain.KeyProvider using a local file.
// The key is base64 in a hidden file with 0600 permissions.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a FileKeyProvider for the given data directory.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{
		keyPath: filepath.Join(dataDir, keyFileName),
	}
}

// GetKey reads the encryption key from the key file.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return decodeKey(string(encoded))
}

// StoreKey writes the encryption key to the key file with restricted permissions.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if err := checkKeySize(key); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(p.keyPath, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// FallbackKeyProvider prefers primary and uses fallback when primary is
// unavailable, e.g. a Keychain that is locked or absent over SSH.
type FallbackKeyProvider struct {
	primary  domain.KeyProvider
	fallback domain.KeyProvider
	logger   *zap.Logger
}

// NewFallbackKeyProvider chains two providers.
func NewFallbackKeyProvider(primary, fallback domain.KeyProvider, logger *zap.Logger) *FallbackKeyProvider {
	return &FallbackKeyProvider{primary: primary, fallback: fallback, logger: logger}
}

// NewDefaultKeyProvider uses the Keychain with a key file in dataDir as fallback.
func NewDefaultKeyProvider(dataDir string, logger *zap.Logger) *FallbackKeyProvider {
	return NewFallbackKeyProvider(NewKeychainKeyProvider(), NewFileKeyProvider(dataDir), logger)
}

// GetKey returns the fallback key if one was written, else the primary key.
// A fallback key only exists because the primary refused it when the store
// was created, so it is the one the store is encrypted with.
func (p *FallbackKeyProvider) GetKey() ([]byte, error) {
	if p.fallback.KeyExists() {
		return p.fallback.GetKey()
	}
	return p.primary.GetKey()
}

// StoreKey writes to primary, or to fallback if primary refuses.
func (p *FallbackKeyProvider) StoreKey(key []byte) error {
	err := p.primary.StoreKey(key)
	if err == nil {
		return nil
	}
	p.logger.Warn("primary key provider unavailable, storing key in fallback", zap.Error(err))
	return p.fallback.StoreKey(key)
}

// KeyExists checks both providers.
func (p *FallbackKeyProvider) KeyExists() bool {
	return p.primary.KeyExists() || p.fallback.KeyExists()
}

// GenerateKey creates a new random 256-bit encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// ErrKeyUnavailable means an encrypted store exists but its key cannot be
// read. A new key is never generated in that case: it could not open the
// store and would replace the one that can.
var ErrKeyUnavailable = errors.New("store key unavailable")

// EnsureKey returns the store key for dataDir, generating and storing one
// only while no store exists there yet.
func EnsureKey(provider domain.KeyProvider, dataDir string) ([]byte, error) {
	_, statErr := os.Stat(filepath.Join(dataDir, storeDBName))
	storeExists := statErr == nil

	if provider.KeyExists() {
		key, err := provider.GetKey()
		if err == nil {
			return key, nil
		}
		if storeExists {
			return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
		}
	} else if storeExists {
		return nil, fmt.Errorf("%w: no key found for existing store %s",
			ErrKeyUnavailable, filepath.Join(dataDir, storeDBName))
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

var (
	_ domain.KeyProvider = (*KeychainKeyProvider)(nil)
	_ domain.KeyProvider = (*FileKeyProvider)(nil)
	_ domain.KeyProvider = (*FallbackKeyProvider)(nil)
)
