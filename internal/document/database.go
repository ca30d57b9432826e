package document

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/docscan/internal/scanning"
)

const bucketName = "documents"

// Store persists the session history
type Store interface {
	// SaveDocument appends a document
	SaveDocument(doc *Document) error

	// ListDocuments returns all documents in insertion order
	ListDocuments() ([]*Document, error)

	// ClearDocuments removes all documents
	ClearDocuments() error

	// Close closes the store
	Close() error
}

// storedDocument is the persisted form of a Document. Derived fields are
// rebuilt from Raw on load.
type storedDocument struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Raw         scanning.Record `json:"raw"`
	ExtractedAt time.Time       `json:"extracted_at"`
}

// BoltDB implements the Store interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveDocument stores a document under the bucket's next sequence number
// so that iteration order matches insertion order
func (b *BoltDB) SaveDocument(doc *Document) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating sequence: %w", err)
		}
		data, err := json.Marshal(storedDocument{
			ID:          doc.ID,
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Raw:         doc.Raw,
			ExtractedAt: doc.ExtractedAt,
		})
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

// ListDocuments returns all documents in insertion order
func (b *BoltDB) ListDocuments() ([]*Document, error) {
	docs := make([]*Document, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			// UseNumber keeps numeric fields exactly as the model wrote them
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.UseNumber()
			var stored storedDocument
			if err := dec.Decode(&stored); err != nil {
				return fmt.Errorf("unmarshaling document: %w", err)
			}
			docs = append(docs, NewDocument(stored.ID, stored.Filename, stored.ContentType, stored.Raw, stored.ExtractedAt))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ClearDocuments drops and recreates the documents bucket
func (b *BoltDB) ClearDocuments() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return fmt.Errorf("deleting bucket: %w", err)
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
