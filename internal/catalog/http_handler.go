package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bookcatalog/internal/book"
	"bookcatalog/internal/httpx"
)

func init() {
	httpx.RegisterValidation("genre",
		"%s must be one of "+strings.Join(book.Genres, ", "),
		func(fl validator.FieldLevel) bool {
			return book.IsValidGenre(fl.Field().String())
		})
}

type createBookRequest struct {
	ISBN  string `json:"ISBN" validate:"required"`
	Title string `json:"title" validate:"required"`
	Genre string `json:"genre" validate:"required,genre"`
}

type replaceBookRequest struct {
	ID            string `json:"id" validate:"required"`
	ISBN          string `json:"ISBN" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Genre         string `json:"genre" validate:"required,genre"`
	Authors       string `json:"authors" validate:"required"`
	Publisher     string `json:"publisher" validate:"required"`
	PublishedDate string `json:"publishedDate" validate:"required"`
}

// rateRequest keeps the raw value so that only integer literals are accepted.
type rateRequest struct {
	Value json.RawMessage `json:"value"`
}

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// RegisterRoutes mounts the catalog endpoints on mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /books", httpx.RequireJSON(http.HandlerFunc(h.CreateBook)))
	mux.HandleFunc("GET /books", h.ListBooks)
	mux.HandleFunc("GET /books/{id}", h.GetBook)
	mux.Handle("PUT /books/{id}", httpx.RequireJSON(http.HandlerFunc(h.ReplaceBook)))
	mux.HandleFunc("DELETE /books/{id}", h.DeleteBook)

	mux.HandleFunc("GET /ratings", h.ListRatings)
	mux.HandleFunc("GET /ratings/{id}", h.GetRatings)
	mux.Handle("POST /ratings/{id}/values", httpx.RequireJSON(http.HandlerFunc(h.RateBook)))

	mux.HandleFunc("GET /top", h.TopBooks)
}

// CreateBook handles POST /books
// @Summary Create a book
// @Description Creates a book enriched with provider metadata, plus an empty rating aggregate
// @Tags books
// @Accept json
// @Produce json
// @Success 201 {object} map[string]string
// @Failure 415 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id, err := h.svc.CreateBook(r.Context(), CreateBookInput{
		ISBN:  req.ISBN,
		Title: req.Title,
		Genre: req.Genre,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]string{"book ID": id})
}

// ListBooks handles GET /books
// Every query parameter is an exact-match filter on the book field of the same name.
func (h *HTTPHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	filter := book.Filter{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			filter[key] = values[0]
		}
	}

	books, err := h.svc.ListBooks(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

// GetBook handles GET /books/{id}
func (h *HTTPHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBook(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

// ReplaceBook handles PUT /books/{id}
// @Summary Replace a book
// @Description Overwrites every field of a book. The body id must equal the path id.
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 415 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /books/{id} [put]
func (h *HTTPHandler) ReplaceBook(w http.ResponseWriter, r *http.Request) {
	var req replaceBookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id, err := h.svc.ReplaceBook(r.Context(), r.PathValue("id"), ReplaceBookInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"book ID": id})
}

// DeleteBook handles DELETE /books/{id}
func (h *HTTPHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.DeleteBook(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"id": id})
}

// ListRatings handles GET /ratings
func (h *HTTPHandler) ListRatings(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.svc.ListRatings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, aggs)
}

// GetRatings handles GET /ratings/{id}
func (h *HTTPHandler) GetRatings(w http.ResponseWriter, r *http.Request) {
	agg, err := h.svc.GetRatings(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, agg)
}

// RateBook handles POST /ratings/{id}/values
// @Summary Rate a book
// @Description Appends an integer rating between 1 and 5 and returns the new average
// @Tags ratings
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Success 201 {object} map[string]float64
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /ratings/{id}/values [post]
func (h *HTTPHandler) RateBook(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !decode(w, r, &req) {
		return
	}

	value, err := parseRatingValue(req.Value)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, httpx.CodeValidation, "Invalid rating",
			[]httpx.ErrorDetail{{Field: "value", Message: err.Error()}})
		return
	}

	avg, err := h.svc.RateBook(r.Context(), r.PathValue("id"), value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]float64{"new_average": avg})
}

// TopBooks handles GET /top
func (h *HTTPHandler) TopBooks(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.svc.TopBooks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, aggs)
}

func parseRatingValue(raw json.RawMessage) (int, error) {
	s := string(raw)
	if s == "" || s == "null" {
		return 0, errors.New("value is required")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("value must be an integer between 1 and 5")
	}
	return v, nil
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := httpx.DecodeJSON(r, dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, httpx.CodeTooLarge, "Request body too large", nil)
		return false
	}
	httpx.JSONError(w, http.StatusUnprocessableEntity, httpx.CodeValidation, "Malformed JSON body",
		[]httpx.ErrorDetail{{Field: "body", Message: err.Error()}})
	return false
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decode(w, r, dst) {
		return false
	}
	if details := httpx.ValidateStruct(dst); len(details) > 0 {
		httpx.JSONError(w, http.StatusUnprocessableEntity, httpx.CodeValidation, "Invalid request", details)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		details := make([]httpx.ErrorDetail, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			details = append(details, httpx.ErrorDetail{Field: f.Field, Message: f.Message})
		}
		httpx.JSONError(w, http.StatusUnprocessableEntity, httpx.CodeValidation, "Invalid request", details)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, "Resource not found", nil)
	case errors.Is(err, ErrConflict):
		httpx.JSONError(w, http.StatusUnprocessableEntity, httpx.CodeDuplicateISBN,
			"A book with this ISBN already exists", nil)
	case errors.Is(err, ErrEnrichment):
		httpx.LoggerFrom(r).Warn("book creation aborted", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeEnrichmentFailed,
			"Could not retrieve book metadata", nil)
	default:
		httpx.LoggerFrom(r).Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
	}
}
