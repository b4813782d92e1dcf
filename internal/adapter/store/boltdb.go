package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"tokenprep/internal/domain"
)

var (
	bucketCounts = []byte("counts")
	bucketMeta   = []byte("meta")
)

// BoltStore caches per-file line counts between runs.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCounts, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type countMeta struct {
	Size      int64 `json:"size"`
	ModTime   int64 `json:"mod_time_ns"`
	Lines     int   `json:"lines"`
	Skipped   int   `json:"skipped"`
	CountedAt int64 `json:"counted_at"`
}

func toDomain(path string, m countMeta) domain.FileCount {
	return domain.FileCount{
		Path:      path,
		Size:      m.Size,
		ModTime:   time.Unix(0, m.ModTime),
		Lines:     m.Lines,
		Skipped:   m.Skipped,
		CountedAt: time.Unix(m.CountedAt, 0),
	}
}

func (s *BoltStore) GetCount(path string) (domain.FileCount, bool, error) {
	var (
		count domain.FileCount
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCounts).Get([]byte(path))
		if data == nil {
			return nil
		}
		var meta countMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		count = toDomain(path, meta)
		found = true
		return nil
	})
	return count, found, err
}

func (s *BoltStore) PutCount(count domain.FileCount) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := countMeta{
			Size:      count.Size,
			ModTime:   count.ModTime.UnixNano(),
			Lines:     count.Lines,
			Skipped:   count.Skipped,
			CountedAt: count.CountedAt.Unix(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCounts).Put([]byte(count.Path), data)
	})
}

func (s *BoltStore) DeleteCount(path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCounts).Delete([]byte(path))
	})
}

func (s *BoltStore) ListCounts() ([]domain.FileCount, error) {
	var counts []domain.FileCount
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCounts).ForEach(func(k, v []byte) error {
			var meta countMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			counts = append(counts, toDomain(string(k), meta))
			return nil
		})
	})
	return counts, err
}

// Clear drops every cached count. Schema info is kept.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketCounts); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketCounts)
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
