package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// This file contains tests of the relational book storage against sqlite.

func TestGormBookStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewGormBookStorage(zap.NewNop(), newTestDB(t))

	t.Run("get all on empty table", func(t *testing.T) {
		books, err := storage.GetAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	var added []Book
	t.Run("add", func(t *testing.T) {
		for _, book := range testBooks() {
			book.ID = 99
			b, err := storage.Add(ctx, book)
			require.NoError(t, err)
			assert.NotEqual(t, uint(99), b.ID)
			assert.Equal(t, book.Title, b.Title)
			assert.False(t, b.CreatedAt.IsZero())
			added = append(added, b)
		}
		assert.Len(t, added, 3)
	})

	t.Run("add with missing field", func(t *testing.T) {
		_, err := storage.Add(ctx, Book{Title: "t", Description: "d"})
		assert.True(t, errors.Is(err, ErrMissingField))
	})

	t.Run("get one", func(t *testing.T) {
		b, err := storage.GetOne(ctx, added[1].ID)
		require.NoError(t, err)
		assert.Equal(t, added[1].ID, b.ID)
		assert.Equal(t, added[1].Title, b.Title)
		assert.Equal(t, added[1].Author, b.Author)
		assert.Equal(t, added[1].Description, b.Description)

		_, err = storage.GetOne(ctx, 1000)
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("get all ordered by id", func(t *testing.T) {
		books, err := storage.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, books, 3)
		for i, b := range books {
			assert.Equal(t, added[i].ID, b.ID)
		}
	})

	t.Run("update", func(t *testing.T) {
		b, err := storage.Update(ctx, added[0].ID, Book{Title: "new title", Author: "new author", Description: "new description"})
		require.NoError(t, err)
		assert.Equal(t, added[0].ID, b.ID)
		assert.Equal(t, "new title", b.Title)
		assert.Equal(t, "new author", b.Author)
		assert.Equal(t, "new description", b.Description)

		stored, err := storage.GetOne(ctx, added[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "new title", stored.Title)

		_, err = storage.Update(ctx, 1000, Book{Title: "t", Author: "a", Description: "d"})
		assert.Equal(t, ErrBookNotFound, err)

		_, err = storage.Update(ctx, added[0].ID, Book{Title: "t", Author: "a"})
		assert.True(t, errors.Is(err, ErrMissingField))
	})

	t.Run("delete", func(t *testing.T) {
		b, err := storage.Delete(ctx, added[2].ID)
		require.NoError(t, err)
		assert.Equal(t, added[2].ID, b.ID)
		assert.Equal(t, added[2].Title, b.Title)

		_, err = storage.GetOne(ctx, added[2].ID)
		assert.Equal(t, ErrBookNotFound, err)

		_, err = storage.Delete(ctx, added[2].ID)
		assert.Equal(t, ErrBookNotFound, err)

		books, err := storage.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})
}

func TestGetDatabaseClient(t *testing.T) {
	t.Run("should fail: unsupported driver", func(t *testing.T) {
		config := DefaultConfig()
		config.Database.Driver = "mysql"
		_, err := GetDatabaseClient(config, zap.NewNop())
		assert.True(t, errors.Is(err, ErrUnsupportedDriver))
	})

	t.Run("should pass: postgres handle is lazy", func(t *testing.T) {
		config := DefaultConfig()
		config.Database.Port = "1"
		db, err := GetDatabaseClient(config, zap.NewNop())
		require.NoError(t, err)
		defer CloseDatabaseClient(db)
		assert.Error(t, DatabasePinger(db)(context.Background()))
	})

	t.Run("connection string", func(t *testing.T) {
		config := DefaultConfig()
		config.Database.Password = "secret"
		assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=books sslmode=disable", config.Database.ConnectionString())

		config.Database.DSN = "postgres://localhost/books"
		assert.Equal(t, "postgres://localhost/books", config.Database.ConnectionString())

		config.Database.DSN = ""
		config.Database.Driver = DriverSQLite
		assert.Equal(t, "books", config.Database.ConnectionString())
	})
}
