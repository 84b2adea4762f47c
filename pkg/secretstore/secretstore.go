// Package secretstore keeps exchange credentials in an encrypted Badger
// database so they do not have to live in config files or the environment.
package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// Field names stored under exchange/<name>/.
const (
	FieldAPIKey    = "api_key"
	FieldSecretKey = "secret_key"
	FieldUsername  = "username"
)

// Store wraps a Badger DB. Encryption at rest comes from Badger's own
// options when an encryption key is given.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 16, 24 or 32 bytes; nil opens without encryption
	ReadOnly      bool
	InMemory      bool // tests only; Path is ignored
}

func Open(opts OpenOptions) (*Store, error) {
	if !opts.InMemory && strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("secretstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	if len(opts.EncryptionKey) > 0 {
		// Badger refuses encrypted DBs without an index cache.
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "secretstore: open")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeKey(key string) ([]byte, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, errors.New("secretstore: key is empty")
	}
	return []byte(k), nil
}

// GetString returns the value and whether the key exists.
func (s *Store) GetString(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("secretstore: not opened")
	}
	k, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}
	var (
		out   string
		found bool
	)
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "secretstore: get %s", key)
	}
	return out, found, nil
}

func (s *Store) SetString(key string, val string) error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: not opened")
	}
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(val))
	})
}

func (s *Store) Delete(key string) error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: not opened")
	}
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// Keys lists stored keys with the given prefix, without reading values.
func (s *Store) Keys(prefix string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("secretstore: not opened")
	}
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return out, err
}

// ExchangeKey is the storage key of one credential field of an exchange.
func ExchangeKey(exchange, field string) string {
	return "exchange/" + strings.ToLower(strings.TrimSpace(exchange)) + "/" + field
}

// Credentials are what a signed exchange call needs.
type Credentials struct {
	APIKey    string
	SecretKey string
	Username  string
}

func (c Credentials) IsZero() bool {
	return c.APIKey == "" && c.SecretKey == "" && c.Username == ""
}

// ExchangeCredentials reads every stored field for exchange. Missing fields
// stay empty.
func (s *Store) ExchangeCredentials(exchange string) (Credentials, error) {
	var c Credentials
	for field, dst := range map[string]*string{
		FieldAPIKey:    &c.APIKey,
		FieldSecretKey: &c.SecretKey,
		FieldUsername:  &c.Username,
	} {
		v, _, err := s.GetString(ExchangeKey(exchange, field))
		if err != nil {
			return Credentials{}, err
		}
		*dst = v
	}
	return c, nil
}

// PutExchangeCredentials stores the non-empty fields of c.
func (s *Store) PutExchangeCredentials(exchange string, c Credentials) error {
	for field, v := range map[string]string{
		FieldAPIKey:    c.APIKey,
		FieldSecretKey: c.SecretKey,
		FieldUsername:  c.Username,
	} {
		if v == "" {
			continue
		}
		if err := s.SetString(ExchangeKey(exchange, field), v); err != nil {
			return err
		}
	}
	return nil
}

// ParseKey decodes a 32-byte key given as hex (optionally 0x-prefixed) or
// base64. Empty input yields a nil key.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, errors.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
	}
	if len(b) != 32 {
		return nil, errors.Errorf("decoded key length must be 32, got %d", len(b))
	}
	return b, nil
}
