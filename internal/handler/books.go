package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/safar/go-bookstore/internal/store"
	"github.com/shopspring/decimal"
)

const booksPath = "/libros"

type bookForm struct {
	Title       string `form:"nombre" binding:"required"`
	Author      string `form:"autor"`
	Genre       string `form:"genero"`
	Stock       int    `form:"stock" binding:"min=0"`
	ISBN        string `form:"isbn"`
	Year        int    `form:"anio_publicacion" binding:"min=0"`
	Price       string `form:"precio" binding:"required,numeric"`
	Description string `form:"descripcion"`
	Version     int    `form:"version"`
}

func (f bookForm) input() (store.BookInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return store.BookInput{}, fmt.Errorf("%w: price: %w", database.ErrInvalidInput, err)
	}
	return store.BookInput{
		Title:           f.Title,
		Author:          strings.TrimSpace(f.Author),
		Genre:           strings.TrimSpace(f.Genre),
		Stock:           f.Stock,
		ISBN:            strings.TrimSpace(f.ISBN),
		PublicationYear: f.Year,
		Price:           price.Round(2),
		Description:     strings.TrimSpace(f.Description),
	}, nil
}

func (h *Handler) ListBooks(c *gin.Context) {
	page, pageSize := store.NormalizePage(queryPage(c), 0)

	result, err := store.ListBooks(c.Request.Context(), h.db, page, pageSize)
	if err != nil {
		h.fail(c, "ListBooks", err, "/dashboard")
		return
	}

	view(c, "libros", gin.H{"books": result})
}

func (h *Handler) CreateBook(c *gin.Context) {
	var form bookForm
	if !bind(c, &form, booksPath) {
		return
	}

	in, err := form.input()
	if err != nil {
		h.fail(c, "CreateBook", err, booksPath)
		return
	}

	book, err := store.CreateBook(c.Request.Context(), h.db, in)
	if err != nil {
		h.fail(c, "CreateBook", err, booksPath)
		return
	}

	flash(c, session.FlashSuccess, fmt.Sprintf("Libro %q agregado exitosamente", book.Title))
	redirect(c, booksPath)
}

func (h *Handler) EditBookPage(c *gin.Context) {
	id, ok := pathID(c, booksPath)
	if !ok {
		return
	}

	book, err := store.GetBook(c.Request.Context(), h.db, id)
	if err != nil {
		h.fail(c, "EditBookPage", err, booksPath)
		return
	}

	view(c, "editar_libro", gin.H{"book": book})
}

// UpdateBook applies the edit form. The form echoes the version it was
// rendered with, so a concurrent edit is reported instead of overwritten.
func (h *Handler) UpdateBook(c *gin.Context) {
	id, ok := pathID(c, booksPath)
	if !ok {
		return
	}
	editPath := booksPath + "/editar/" + id.String()

	var form bookForm
	if !bind(c, &form, editPath) {
		return
	}

	in, err := form.input()
	if err != nil {
		h.fail(c, "UpdateBook", err, editPath)
		return
	}

	if _, err := store.UpdateBook(c.Request.Context(), h.db, id, in, form.Version); err != nil {
		h.fail(c, "UpdateBook", err, editPath)
		return
	}

	flash(c, session.FlashSuccess, "Libro actualizado exitosamente")
	redirect(c, booksPath)
}

func (h *Handler) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, booksPath)
	if !ok {
		return
	}

	if err := store.DeleteBook(c.Request.Context(), h.db, id); err != nil {
		h.fail(c, "DeleteBook", err, booksPath)
		return
	}

	flash(c, session.FlashSuccess, "Libro eliminado exitosamente")
	redirect(c, booksPath)
}
