package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

const BackupBucketPrefix = "books."

// BoltBookBackup snapshots books into a bolt file. Each snapshot
// lands into its own bucket named after the time it was taken.
type BoltBookBackup struct {
	logger  *zap.Logger
	clock   Clocker
	path    string
	timeout time.Duration
}

// NewBoltBookBackup provides a bolt-based books backup writing to the given file.
func NewBoltBookBackup(logger *zap.Logger, clock Clocker, path string, timeout time.Duration) *BoltBookBackup {
	return &BoltBookBackup{
		logger:  logger,
		clock:   clock,
		path:    path,
		timeout: timeout,
	}
}

// BackupBucketName returns the bucket name used for a snapshot taken at t.
func BackupBucketName(t time.Time) string {
	return BackupBucketPrefix + t.UTC().Format("20060102T150405.000000000Z")
}

// Save stores all books read from the storage into a new bucket
// and returns the name of that bucket.
func (bb *BoltBookBackup) Save(ctx context.Context, storage BookStorage) (string, error) {
	books, err := storage.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read books: %w", err)
	}

	db, err := bolt.Open(bb.path, 0o600, &bolt.Options{Timeout: bb.timeout})
	if err != nil {
		return "", fmt.Errorf("failed to open the backup file, %v", err)
	}
	defer db.Close()

	bucketName := BackupBucketName(bb.clock.Now())
	err = db.Update(func(tx *bolt.Tx) error {
		bucket, errB := tx.CreateBucket([]byte(bucketName))
		if errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", bucketName, errB)
		}
		for _, book := range books {
			bookBytes, errM := json.Marshal(book)
			if errM != nil {
				return errM
			}
			if errP := bucket.Put([]byte(strconv.FormatUint(uint64(book.ID), 10)), bookBytes); errP != nil {
				return errP
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	bb.logger.Info("books backup saved",
		zap.String("backup.file", bb.path),
		zap.String("backup.bucket", bucketName),
		zap.Int("backup.count", len(books)),
	)
	return bucketName, nil
}
