package main

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrMissingField = errors.New("required field missing")
)

// missingFieldError names the required field which was not provided.
type missingFieldError string

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

func (m missingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// Book represents a book entity stored into the `books` table.
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Author      string    `gorm:"type:varchar(255);not null" json:"author"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Models lists every entity the database reset has to drop and recreate.
var Models = []interface{}{&Book{}}

// Validate ensures all required fields are present.
func (b *Book) Validate() error {
	if len(b.Title) == 0 {
		return missingFieldError("title")
	}

	if len(b.Author) == 0 {
		return missingFieldError("author")
	}

	if len(b.Description) == 0 {
		return missingFieldError("description")
	}

	return nil
}

// BeforeCreate is the gorm hook which rejects incomplete books before insertion.
func (b *Book) BeforeCreate(_ *gorm.DB) error {
	return b.Validate()
}
