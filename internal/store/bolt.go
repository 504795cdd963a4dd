package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var recordsBucket = []byte("records")

// BoltStore keeps every collection in a single bbolt file, the embedded
// equivalent of the browser local storage the platform originally ran on.
type BoltStore struct {
	db  *bolt.DB
	log *logrus.Logger
}

func NewBoltStore(path string, log *logrus.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, log: log}, nil
}

func (s *BoltStore) Load(_ context.Context, name string, out any) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(recordsBucket).Get([]byte(name)); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		s.log.Errorf("bolt read %s: %v", name, err)
		return
	}
	if raw == nil {
		return
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// Malformed blob behaves as missing data.
		s.log.Warnf("bolt: discarding malformed blob %s: %v", name, err)
	}
}

func (s *BoltStore) Save(_ context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(name), data)
	})
}

func (s *BoltStore) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Delete([]byte(name))
	})
}

func (s *BoltStore) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Errorf("bolt close: %v", err)
	}
}
