// Package kv is the embedded key-value store backing wizard drafts and the
// LLM response cache.
package kv

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("kv: key not found")

// Each value is stored as an 8-byte big-endian expiry (unix nanoseconds, 0 for
// none) followed by the payload.
const headerLen = 8

type Store struct {
	db  *leveldb.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open kv store at %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores value under key. A zero ttl never expires.
func (s *Store) Put(key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, headerLen+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf, uint64(s.now().Add(ttl).UnixNano()))
	}
	copy(buf[headerLen:], value)
	return s.db.Put([]byte(key), buf, nil)
}

// Get returns the value for key. Expired entries are deleted lazily and
// reported as ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	if s.expired(raw) {
		_ = s.db.Delete([]byte(key), nil)
		return nil, ErrNotFound
	}
	return raw[headerLen:], nil
}

func (s *Store) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

func (s *Store) PutJSON(key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	return s.Put(key, data, ttl)
}

func (s *Store) GetJSON(key string, v interface{}) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("kv decode %s: %w", key, err)
	}
	return nil
}

// Keys lists the live keys under prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		if !s.expired(iter.Value()) {
			keys = append(keys, string(iter.Key()))
		}
	}
	return keys, iter.Error()
}

// PurgeExpired deletes every expired entry under prefix in one batch and
// returns how many were removed.
func (s *Store) PurgeExpired(prefix string) (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	batch := new(leveldb.Batch)
	for iter.Next() {
		if s.expired(iter.Value()) {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("kv scan %s: %w", prefix, err)
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("kv purge %s: %w", prefix, err)
	}
	return batch.Len(), nil
}

func (s *Store) expired(raw []byte) bool {
	if len(raw) < headerLen {
		return true
	}
	exp := binary.BigEndian.Uint64(raw[:headerLen])
	return exp != 0 && s.now().UnixNano() >= int64(exp)
}
