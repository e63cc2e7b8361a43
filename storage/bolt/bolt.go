/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt is a storage.Storage backed by a bbolt file.  Each
// namespace is a bucket.
package bolt

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Comcast/lightswitch/storage"

	bolt "go.etcd.io/bbolt"
)

type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	if filename == "" {
		return nil, errors.New("no filename")
	}
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB Storage."+format, args...)
	}
}

// Has uses a read-only transaction, so a missing bucket stays
// missing.
func (s *Storage) Has(ctx context.Context, ns, key string) bool {
	have := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		have = b.Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		log.Printf("warning: BoltDB Storage.Has %s/%s: %s", ns, key, err)
		return false
	}
	s.logf("Has %s/%s %v", ns, key, have)
	return have
}

func (s *Storage) Get(ctx context.Context, ns, key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return storage.ErrNotFound
		}
		bs := b.Get([]byte(key))
		if bs == nil {
			return storage.ErrNotFound
		}
		// bs is only valid during the transaction.
		val = string(bs)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logf("Get %s/%s %s", ns, key, val)
	return val, nil
}

func (s *Storage) Put(ctx context.Context, ns, key, val string) error {
	s.logf("Put %s/%s %s", ns, key, val)
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(ns))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(val))
	})
}

func (s *Storage) Keys(ctx context.Context, ns string) ([]string, error) {
	acc := make([]string, 0, 8)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			acc = append(acc, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
