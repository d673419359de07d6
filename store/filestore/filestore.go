// Package filestore persists the session mirror as a YAML file on disk.
// Writes are atomic (temp file + rename into place) and the file can
// optionally be sealed at rest with a passphrase-derived key.
package filestore

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
	"gopkg.in/yaml.v3"

	errs "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/store"
)

const (
	fileMode = 0o600
	dirMode  = 0o700

	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	saltBytes    = 16
	sealKeyBytes = 32
)

// Store implements store.Repo on a single YAML file.
type Store struct {
	path       string
	passphrase string
	lock       sync.Mutex
}

var _ store.Repo = (*Store)(nil)

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithSealing seals the file at rest with a key derived from the
// passphrase via scrypt. Reading a sealed file requires the same
// passphrase.
func WithSealing(passphrase string) Option {
	return func(s *Store) {
		s.passphrase = passphrase
	}
}

// New creates a Store persisting to the given path. The file and its
// directory are created on first write.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fileDoc is the on-disk document. Either Values is set (unsealed) or the
// Salt/Nonce/Data envelope is (sealed).
type fileDoc struct {
	Sealed bool              `yaml:"sealed,omitempty"`
	Salt   string            `yaml:"salt,omitempty"`
	Nonce  string            `yaml:"nonce,omitempty"`
	Data   string            `yaml:"data,omitempty"`
	Values map[string]string `yaml:"values,omitempty"`
}

func (s *Store) Get(key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *Store) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *Store) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errs.Wrapf(err, "read session file %s", s.path)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errs.Wrapf(err, "parse session file %s", s.path)
	}

	if doc.Sealed {
		return s.unseal(&doc)
	}
	if doc.Values == nil {
		return map[string]string{}, nil
	}
	return doc.Values, nil
}

// save writes the document atomically. An empty value set removes the file
// entirely, so a logout leaves nothing on disk.
func (s *Store) save(values map[string]string) error {
	if len(values) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return errs.Wrapf(err, "remove session file %s", s.path)
		}
		return nil
	}

	doc := &fileDoc{Values: values}
	if s.passphrase != "" {
		plaintext, err := yaml.Marshal(fileDoc{Values: values})
		if err != nil {
			return errs.Wrapf(err, "marshal session values")
		}
		doc, err = s.seal(plaintext)
		if err != nil {
			return err
		}
	}

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return errs.Wrapf(err, "marshal session file")
	}
	return s.writeAtomic(raw)
}

func (s *Store) writeAtomic(raw []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errs.Wrapf(err, "ensure session directory %s", dir)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return errs.Wrapf(err, "create temp session file")
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(fileMode); err != nil {
		return errs.Wrapf(err, "chmod temp session file")
	}
	if _, err := tmpFile.Write(raw); err != nil {
		return errs.Wrapf(err, "write temp session file")
	}
	if err := tmpFile.Sync(); err != nil {
		return errs.Wrapf(err, "sync temp session file")
	}
	if err := tmpFile.Close(); err != nil {
		return errs.Wrapf(err, "close temp session file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errs.Wrapf(err, "replace session file %s", s.path)
	}
	return nil
}

func (s *Store) seal(plaintext []byte) (*fileDoc, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, errs.Wrapf(err, "generate salt")
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errs.Wrapf(err, "generate nonce")
	}

	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	encode := base64.StdEncoding.EncodeToString
	return &fileDoc{
		Sealed: true,
		Salt:   encode(salt),
		Nonce:  encode(nonce[:]),
		Data:   encode(secretbox.Seal(nil, plaintext, &nonce, key)),
	}, nil
}

func (s *Store) unseal(doc *fileDoc) (map[string]string, error) {
	if s.passphrase == "" {
		return nil, errors.New("session file is sealed and no passphrase is configured")
	}

	decode := base64.StdEncoding.DecodeString
	salt, err := decode(doc.Salt)
	if err != nil {
		return nil, errs.Wrapf(err, "decode salt")
	}
	nonceBytes, err := decode(doc.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, errors.New("invalid nonce in sealed session file")
	}
	sealed, err := decode(doc.Data)
	if err != nil {
		return nil, errs.Wrapf(err, "decode sealed data")
	}

	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	plaintext, ok := secretbox.Open(nil, sealed, &nonce, key)
	if !ok {
		return nil, errors.New("cannot unseal session file: wrong passphrase or corrupt file")
	}

	var inner fileDoc
	if err := yaml.Unmarshal(plaintext, &inner); err != nil {
		return nil, errs.Wrapf(err, "parse unsealed session values")
	}
	if inner.Values == nil {
		return map[string]string{}, nil
	}
	return inner.Values, nil
}

func (s *Store) deriveKey(salt []byte) (*[32]byte, error) {
	derived, err := scrypt.Key([]byte(s.passphrase), salt, scryptN, scryptR, scryptP, sealKeyBytes)
	if err != nil {
		return nil, errs.Wrapf(err, "derive sealing key")
	}
	var key [32]byte
	copy(key[:], derived)
	return &key, nil
}
