package main

import "context"

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	Add(ctx context.Context, book Book) (Book, error)
	GetOne(ctx context.Context, id uint) (Book, error)
	Delete(ctx context.Context, id uint) (Book, error)
	Update(ctx context.Context, id uint, book Book) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
}
