package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormBookStorage struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewGormBookStorage provides an instance of relational database book storage.
func NewGormBookStorage(logger *zap.Logger, db *gorm.DB) BookStorage {
	return &gormBookStorage{
		logger: logger,
		db:     db,
	}
}

// Add inserts a new book record and returns it with its id and timestamps.
func (gs *gormBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	book.ID = 0
	err := gs.db.WithContext(ctx).Create(&book).Error
	return book, err
}

// GetOne retrieves a book record based on its ID.
func (gs *gormBookStorage) GetOne(ctx context.Context, id uint) (Book, error) {
	var book Book
	err := gs.db.WithContext(ctx).First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Book{}, ErrBookNotFound
	}
	return book, err
}

// Delete removes a book record based on its ID and returns the deleted row.
func (gs *gormBookStorage) Delete(ctx context.Context, id uint) (Book, error) {
	var book Book
	res := gs.db.WithContext(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&book)
	if res.Error != nil {
		return Book{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

// Update replaces the title, author and description of an existing book
// record and returns the row as stored after the update.
func (gs *gormBookStorage) Update(ctx context.Context, id uint, book Book) (Book, error) {
	if err := book.Validate(); err != nil {
		return Book{}, err
	}
	var updated Book
	res := gs.db.WithContext(ctx).Model(&updated).Clauses(clause.Returning{}).Where("id = ?", id).Updates(map[string]interface{}{
		"title":       book.Title,
		"author":      book.Author,
		"description": book.Description,
	})
	if res.Error != nil {
		return Book{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Book{}, ErrBookNotFound
	}
	return updated, nil
}

// GetAll retrieves a list of all books ordered by their IDs.
func (gs *gormBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	books := []Book{}
	err := gs.db.WithContext(ctx).Order("id").Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}
