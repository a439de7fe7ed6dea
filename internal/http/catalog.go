package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/library"
)

type authorRequest struct {
	Name    string `json:"name" binding:"required"`
	Surname string `json:"surname"`
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

// AuthorsController serves /api/authors.
type AuthorsController struct {
	service AuthorService
}

func NewAuthorsController(service AuthorService) *AuthorsController {
	return &AuthorsController{service: service}
}

// List returns all authors
// GET /api/authors
func (ac *AuthorsController) List(c *gin.Context) {
	list, err := ac.service.ListAuthors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Select returns {label, value} pairs for pickers
// GET /api/authors/select
func (ac *AuthorsController) Select(c *gin.Context) {
	options, err := ac.service.AuthorSelect(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

// BooksCount returns every author with the number of active books
// GET /api/authors/books-count
func (ac *AuthorsController) BooksCount(c *gin.Context) {
	rows, err := ac.service.AuthorBooksCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Get returns one author
// GET /api/authors/:id
func (ac *AuthorsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	author, err := ac.service.GetAuthor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

// Create adds an author
// POST /api/authors
func (ac *AuthorsController) Create(c *gin.Context) {
	var req authorRequest
	if !bindJSON(c, &req) {
		return
	}
	author, err := ac.service.CreateAuthor(c.Request.Context(), actor(c), library.AuthorInput{Name: req.Name, Surname: req.Surname})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, author)
}

// Update renames an author the caller created
// PATCH /api/authors/:id
func (ac *AuthorsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req authorRequest
	if !bindJSON(c, &req) {
		return
	}
	author, err := ac.service.UpdateAuthor(c.Request.Context(), actor(c), id, library.AuthorInput{Name: req.Name, Surname: req.Surname})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

// Delete removes an author without books
// DELETE /api/authors/:id
func (ac *AuthorsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.service.DeleteAuthor(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PublishersController serves /api/publishers.
type PublishersController struct {
	service PublisherService
}

func NewPublishersController(service PublisherService) *PublishersController {
	return &PublishersController{service: service}
}

// GET /api/publishers
func (pc *PublishersController) List(c *gin.Context) {
	list, err := pc.service.ListPublishers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/publishers/books-count
func (pc *PublishersController) BooksCount(c *gin.Context) {
	rows, err := pc.service.PublisherBooksCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /api/publishers/:id
func (pc *PublishersController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	publisher, err := pc.service.GetPublisher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publisher)
}

// POST /api/publishers
func (pc *PublishersController) Create(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	publisher, err := pc.service.CreatePublisher(c.Request.Context(), actor(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, publisher)
}

// PATCH /api/publishers/:id
func (pc *PublishersController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	publisher, err := pc.service.UpdatePublisher(c.Request.Context(), actor(c), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publisher)
}

// DELETE /api/publishers/:id
func (pc *PublishersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := pc.service.DeletePublisher(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CategoriesController serves /api/categories.
type CategoriesController struct {
	service CategoryService
}

func NewCategoriesController(service CategoryService) *CategoriesController {
	return &CategoriesController{service: service}
}

// GET /api/categories
func (cc *CategoriesController) List(c *gin.Context) {
	list, err := cc.service.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/categories/books-count
func (cc *CategoriesController) BooksCount(c *gin.Context) {
	rows, err := cc.service.CategoryBooksCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// POST /api/categories
func (cc *CategoriesController) Create(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := cc.service.CreateCategory(c.Request.Context(), actor(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, category)
}

// PATCH /api/categories/:id
func (cc *CategoriesController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := cc.service.UpdateCategory(c.Request.Context(), actor(c), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DELETE /api/categories/:id
func (cc *CategoriesController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := cc.service.DeleteCategory(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
