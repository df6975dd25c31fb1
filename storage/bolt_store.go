package storage

import (
	bolt "go.etcd.io/bbolt"
)

type BoltStore struct {
	db         *bolt.DB
	bucketName string
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore creates a store kept in a single bucket of db. The bucket is created
// if it doesn't exist.
func NewBoltStore(db *bolt.DB, bucketName string) (*BoltStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if bucketName == "" {
		return nil, ErrInvalidBucketName
	}

	er := db.Update(func(tx *bolt.Tx) error {
		_, er := tx.CreateBucketIfNotExists([]byte(bucketName))
		return er
	})
	if er != nil {
		return nil, er
	}

	return &BoltStore{db: db, bucketName: bucketName}, nil
}

func (st *BoltStore) Get(key string) (ret string, ok bool, er error) {
	er = st.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(st.bucketName))
		if b == nil {
			return nil
		}
		value := b.Get([]byte(key))
		if value == nil {
			return nil
		}
		ok = true
		ret = string(value)
		return nil
	})
	return
}

func (st *BoltStore) Set(key, value string) error {
	return st.db.Update(func(tx *bolt.Tx) error {
		b, er := tx.CreateBucketIfNotExists([]byte(st.bucketName))
		if er != nil {
			return er
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (st *BoltStore) Remove(key string) error {
	return st.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(st.bucketName))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Clear drops every key of the bucket.
func (st *BoltStore) Clear() error {
	return st.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(st.bucketName)) != nil {
			if er := tx.DeleteBucket([]byte(st.bucketName)); er != nil {
				return er
			}
		}
		_, er := tx.CreateBucket([]byte(st.bucketName))
		return er
	})
}

func (st *BoltStore) Keys() ([]string, error) {
	keys := make([]string, 0)
	er := st.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(st.bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, er
}
