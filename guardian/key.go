package guardian

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const keyFilePerm = 0600

// Errors
var (
	ErrInvalidKeyFile = errors.New("invalid guardian key file")
)

// FileKey is a file-backed guardian key
type FileKey struct {
	mu sync.Mutex

	path    string
	pubKey  ed25519.PublicKey
	privKey ed25519.PrivateKey
}

// fileKeyJSON is the key file structure
type fileKeyJSON struct {
	PubKey  []byte `json:"pub_key"`
	PrivKey []byte `json:"priv_key"`
}

// GenerateFileKey creates a new key and writes it to path, replacing any
// existing file
func GenerateFileKey(path string) (*FileKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	k := &FileKey{path: path, pubKey: pub, privKey: priv}
	if err := k.save(); err != nil {
		return nil, err
	}
	return k, nil
}

// LoadFileKey reads an existing key file
func LoadFileKey(path string) (*FileKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var kf fileKeyJSON
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	if len(kf.PubKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key size %d", ErrInvalidKeyFile, len(kf.PubKey))
	}
	if len(kf.PrivKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key size %d", ErrInvalidKeyFile, len(kf.PrivKey))
	}
	priv := ed25519.PrivateKey(kf.PrivKey)
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(kf.PubKey)) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKeyFile)
	}

	return &FileKey{path: path, pubKey: kf.PubKey, privKey: priv}, nil
}

// LoadOrGenerateFileKey loads the key at path, generating it if the file
// does not exist
func LoadOrGenerateFileKey(path string) (*FileKey, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return GenerateFileKey(path)
	}
	return LoadFileKey(path)
}

func (k *FileKey) save() error {
	if err := os.MkdirAll(filepath.Dir(k.path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	data, err := json.MarshalIndent(fileKeyJSON{PubKey: k.pubKey, PrivKey: k.privKey}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	// write then rename so a crash never leaves a truncated key file
	tmp := k.path + ".tmp"
	if err := os.WriteFile(tmp, data, keyFilePerm); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Rename(tmp, k.path); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Path returns the key file path
func (k *FileKey) Path() string {
	return k.path
}

// PublicKey returns the public key
func (k *FileKey) PublicKey() ed25519.PublicKey {
	out := make(ed25519.PublicKey, len(k.pubKey))
	copy(out, k.pubKey)
	return out
}

// Sign signs payload for chainID
func (k *FileKey) Sign(chainID string, p Payload) []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return ed25519.Sign(k.privKey, p.SignBytes(chainID))
}
