package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// This file contains mocks and helpers needed to perform unit tests.

type MockBookStorage struct {
	AddFunc    func(ctx context.Context, book Book) (Book, error)
	GetOneFunc func(ctx context.Context, id uint) (Book, error)
	DeleteFunc func(ctx context.Context, id uint) (Book, error)
	UpdateFunc func(ctx context.Context, id uint, book Book) (Book, error)
	GetAllFunc func(ctx context.Context) ([]Book, error)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	return m.AddFunc(ctx, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id uint) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id uint) (Book, error) {
	return m.DeleteFunc(ctx, id)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, id uint, book Book) (Book, error) {
	return m.UpdateFunc(ctx, id, book)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
// It equals to `2023-07-02 00:00:00 +0000 UTC` in String format.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// newTestSQLiteConfig returns the default config pointing to a sqlite file
// living into a temporary folder removed at the end of the test.
func newTestSQLiteConfig(t *testing.T) *Config {
	t.Helper()
	config := DefaultConfig()
	config.Database.Driver = DriverSQLite
	config.Database.Name = filepath.Join(t.TempDir(), "books.db")
	return config
}

// newTestDB provides a migrated sqlite database closed at the end of the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := GetDatabaseClient(newTestSQLiteConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Models...))
	t.Cleanup(func() {
		_ = CloseDatabaseClient(db)
	})
	return db
}

// newTestAPIHandler provides an api handler with mocked clock and ids.
func newTestAPIHandler(config *Config, checks ...HealthCheck) *APIHandler {
	return NewAPIHandler(
		zap.NewNop(),
		config,
		&Statistics{started: NewMockClocker().Now()},
		NewMockClocker(),
		NewMockUIDHandler("abc", false),
		checks...,
	)
}

// testBooks returns a fresh set of valid books.
func testBooks() []Book {
	return []Book{
		{Title: "The Go Programming Language", Author: "Alan Donovan", Description: "Go from the ground up."},
		{Title: "Concurrency in Go", Author: "Katherine Cox-Buday", Description: "Tools and techniques."},
		{Title: "Learning Go", Author: "Jon Bodner", Description: "An idiomatic approach."},
	}
}
