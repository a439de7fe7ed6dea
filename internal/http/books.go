package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/database/books"
	"github.com/mrlokans/kitaplik/internal/entities"
	"github.com/mrlokans/kitaplik/internal/library"
)

// Key accepts a JSON number or string, so both {"key": 6} and {"key": "6"}
// (or {"key": "to_buy"} for statuses) are understood.
type Key string

func (k *Key) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = Key(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*k = Key(n.String())
	return nil
}

// ID parses the key as a row id. An empty key is 0.
func (k Key) ID() (uint, error) {
	if k == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(string(k), 10, 32)
	if err != nil {
		return 0, errors.New("key must be a numeric id")
	}
	return uint(id), nil
}

// refRequest selects an existing row by key or names a new one by label.
type refRequest struct {
	Key   Key    `json:"key"`
	Label string `json:"label"`
}

func (r refRequest) toRef() (library.Ref, error) {
	id, err := r.Key.ID()
	if err != nil {
		return library.Ref{}, err
	}
	return library.Ref{Key: id, Label: r.Label}, nil
}

type statusRequest struct {
	Key Key `json:"key" binding:"required"`
}

type createBookRequest struct {
	Title      string        `json:"title" binding:"required"`
	Summary    string        `json:"summary"`
	ISBN       string        `json:"isbn" binding:"omitempty,max=20"`
	Author     refRequest    `json:"author"`
	Publisher  *refRequest   `json:"publisher"`
	Status     statusRequest `json:"status"`
	Categories []refRequest  `json:"categories"`
}

func (r createBookRequest) toInput() (library.CreateBookInput, error) {
	author, err := r.Author.toRef()
	if err != nil {
		return library.CreateBookInput{}, err
	}
	in := library.CreateBookInput{
		Title:   r.Title,
		Summary: r.Summary,
		ISBN:    r.ISBN,
		Author:  author,
		Status:  string(r.Status.Key),
	}
	if r.Publisher != nil {
		publisher, err := r.Publisher.toRef()
		if err != nil {
			return library.CreateBookInput{}, err
		}
		in.Publisher = &publisher
	}
	for _, cr := range r.Categories {
		ref, err := cr.toRef()
		if err != nil {
			return library.CreateBookInput{}, err
		}
		in.Categories = append(in.Categories, ref)
	}
	return in, nil
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Summary     *string `json:"summary"`
	ISBN        *string `json:"isbn" binding:"omitempty,max=20"`
	AuthorID    *uint   `json:"author_id"`
	PublisherID *uint   `json:"publisher_id"`
	Status      *Key    `json:"status"`
}

type categoriesRequest struct {
	Categories []refRequest `json:"categories"`
}

// BooksController serves /api/books.
type BooksController struct {
	service        BookService
	maxUploadBytes int64
}

func NewBooksController(service BookService, maxUploadBytes int64) *BooksController {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &BooksController{service: service, maxUploadBytes: maxUploadBytes}
}

// List returns active books, filtered and paginated
// GET /api/books?status=&author_id=&publisher_id=&category_id=&owner_id=&q=&limit=&offset=
func (bc *BooksController) List(c *gin.Context) {
	filter := books.ListFilter{Query: strings.TrimSpace(c.Query("q"))}

	if raw := c.Query("status"); raw != "" {
		status, err := entities.ParseStatus(raw)
		if err != nil {
			respondBadRequest(c, "invalid status")
			return
		}
		filter.StatusID = status
	}

	var ok bool
	if filter.AuthorID, ok = optionalQueryID(c, "author_id"); !ok {
		return
	}
	if filter.PublisherID, ok = optionalQueryID(c, "publisher_id"); !ok {
		return
	}
	if filter.CategoryID, ok = optionalQueryID(c, "category_id"); !ok {
		return
	}
	if filter.OwnerUserID, ok = optionalQueryID(c, "owner_id"); !ok {
		return
	}
	filter.Limit, filter.Offset = parsePage(c)

	list, total, err := bc.service.ListBooks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, list, total, filter.Limit, filter.Offset)
}

// Get returns one book with author, publisher, status, categories and cover URL
// GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := bc.service.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// Create adds a book. The body is JSON, or multipart with the JSON in a
// "payload" field and an optional "image" file.
// POST /api/books
func (bc *BooksController) Create(c *gin.Context) {
	var (
		req    createBookRequest
		upload *library.CoverUpload
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bc.maxUploadBytes+1<<20)
		payload := c.PostForm("payload")
		if payload == "" {
			respondBadRequest(c, "Missing parameters")
			return
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			respondBindError(c, err)
			return
		}
		if !validateStruct(c, &req) {
			return
		}

		var ok bool
		if upload, ok = bc.readImage(c, false); !ok {
			return
		}
	} else if !bindJSON(c, &req) {
		return
	}

	in, err := req.toInput()
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	book, err := bc.service.CreateBook(c.Request.Context(), actor(c), in, upload)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, book)
}

// readImage reads the "image" form file. A missing file is an error only
// when required is set.
func (bc *BooksController) readImage(c *gin.Context, required bool) (*library.CoverUpload, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, true
		}
		respondBadRequest(c, "image file is required")
		return nil, false
	}
	if header.Size > bc.maxUploadBytes {
		respondBadRequest(c, "Image is too large")
		return nil, false
	}

	data, err := readFormFile(header, bc.maxUploadBytes)
	if err != nil {
		respondBadRequest(c, "image could not be read")
		return nil, false
	}
	return &library.CoverUpload{Data: data, Filename: header.Filename}, true
}

func readFormFile(header *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// Update changes the fields present in the body
// PATCH /api/books/:id
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateBookRequest
	if !bindJSON(c, &req) {
		return
	}

	in := library.UpdateBookInput{
		Title:       req.Title,
		Summary:     req.Summary,
		ISBN:        req.ISBN,
		AuthorID:    req.AuthorID,
		PublisherID: req.PublisherID,
	}
	if req.Status != nil {
		s := string(*req.Status)
		in.Status = &s
	}

	book, err := bc.service.UpdateBook(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete soft-deletes a book nobody is reading
// DELETE /api/books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bc.service.DeleteBook(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetCategories replaces the categories of a book
// PUT /api/books/:id/categories
func (bc *BooksController) SetCategories(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req categoriesRequest
	if !bindJSON(c, &req) {
		return
	}

	refs := make([]library.Ref, 0, len(req.Categories))
	for _, cr := range req.Categories {
		ref, err := cr.toRef()
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		refs = append(refs, ref)
	}

	book, err := bc.service.SetBookCategories(c.Request.Context(), actor(c), id, refs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// UploadCover stores a new cover image for a book
// PUT /api/books/:id/cover
func (bc *BooksController) UploadCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bc.maxUploadBytes+1<<20)
	upload, ok := bc.readImage(c, true)
	if !ok {
		return
	}

	book, err := bc.service.UploadCover(c.Request.Context(), actor(c), id, upload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}
