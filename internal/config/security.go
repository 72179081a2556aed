package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyDerivationIterations = 100000
	keyLength               = 32
)

// SecurityManager encrypts credentials stored in the profile file
type SecurityManager interface {
	// EncryptCredential encrypts a credential for storage
	EncryptCredential(plaintext string) (string, error)

	// DecryptCredential decrypts a stored credential
	DecryptCredential(ciphertext string) (string, error)

	// SecureKeyExists checks if encryption key material is available
	SecureKeyExists() bool

	// GenerateSecureKey replaces the key material
	GenerateSecureKey() error

	// ClearSecurityData destroys the key material
	ClearSecurityData() error
}

// AESSecurityManager implements SecurityManager using AES-256-GCM with a key derived
// by PBKDF2 from a per-installation salt and a machine-specific passphrase.
type AESSecurityManager struct {
	keyPath    string
	masterKey  []byte
	keyDerived bool
}

// NewSecurityManager creates a security manager with OS-appropriate key storage
func NewSecurityManager() (*AESSecurityManager, error) {
	keyPath, err := getSecurityKeyPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine security key path: %w", err)
	}
	return NewSecurityManagerAt(keyPath)
}

// NewSecurityManagerAt creates a security manager whose salt lives at keyPath.
func NewSecurityManagerAt(keyPath string) (*AESSecurityManager, error) {
	manager := &AESSecurityManager{keyPath: keyPath}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create security directory: %w", err)
	}

	if err := manager.initializeEncryptionKey(); err != nil {
		return nil, fmt.Errorf("failed to initialize encryption key: %w", err)
	}

	return manager, nil
}

func getSecurityKeyPath() (string, error) {
	var securityDir string
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		securityDir = filepath.Join(xdgDataHome, "idrconnect", "security")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		securityDir = filepath.Join(homeDir, ".local", "share", "idrconnect", "security")
	}

	return filepath.Join(securityDir, "master.key"), nil
}

func (s *AESSecurityManager) initializeEncryptionKey() error {
	if _, err := os.Stat(s.keyPath); os.IsNotExist(err) {
		return s.GenerateSecureKey()
	}
	return s.loadExistingKey()
}

func (s *AESSecurityManager) loadExistingKey() error {
	keyData, err := os.ReadFile(s.keyPath)
	if err != nil {
		return fmt.Errorf("failed to read master key file: %w", err)
	}

	salt, err := hex.DecodeString(strings.TrimSpace(string(keyData)))
	if err != nil {
		return fmt.Errorf("failed to decode key material: %w", err)
	}

	s.deriveKey(salt)
	return nil
}

func (s *AESSecurityManager) deriveKey(salt []byte) {
	s.masterKey = pbkdf2.Key([]byte(machinePassphrase()), salt, keyDerivationIterations, keyLength, sha256.New)
	s.keyDerived = true
}

func machinePassphrase() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	return fmt.Sprintf("idrconnect-security-%s-%s", hostname, username)
}

// GenerateSecureKey creates new salt material and derives the master key from it
func (s *AESSecurityManager) GenerateSecureKey() error {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate random salt: %w", err)
	}

	if err := os.WriteFile(s.keyPath, []byte(hex.EncodeToString(salt)), 0600); err != nil {
		return fmt.Errorf("failed to write key material: %w", err)
	}

	s.deriveKey(salt)
	return nil
}

// SecureKeyExists checks if encryption key material is available
func (s *AESSecurityManager) SecureKeyExists() bool {
	_, err := os.Stat(s.keyPath)
	return err == nil
}

func (s *AESSecurityManager) gcm() (cipher.AEAD, error) {
	if !s.keyDerived {
		return nil, fmt.Errorf("encryption key not available")
	}

	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptCredential encrypts plaintext with AES-256-GCM and returns base64(nonce|ciphertext)
func (s *AESSecurityManager) EncryptCredential(plaintext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptCredential reverses EncryptCredential
func (s *AESSecurityManager) DecryptCredential(ciphertext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// ClearSecurityData wipes the in-memory key and removes the salt file
func (s *AESSecurityManager) ClearSecurityData() error {
	for i := range s.masterKey {
		s.masterKey[i] = 0
	}
	s.masterKey = nil
	s.keyDerived = false

	if err := os.Remove(s.keyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove security key file: %w", err)
	}

	return nil
}
