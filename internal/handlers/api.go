package handlers

import (
	"errors"
	"math"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
)

// Meta carries pagination for list responses.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newMeta(page, limit int, total int64) *Meta {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &Meta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Envelope is the body of every successful API response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

func success[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Success: true, Data: data, Message: message}
}

// ErrorBody is the body of every failed API response.
type ErrorBody struct {
	status  int
	Success bool     `json:"success"`
	Message string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (e *ErrorBody) Error() string  { return e.Message }
func (e *ErrorBody) GetStatus() int { return e.status }

func init() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		body := &ErrorBody{status: status, Message: msg}
		for _, err := range errs {
			if err == nil {
				continue
			}
			var detailer huma.ErrorDetailer
			if errors.As(err, &detailer) {
				d := detailer.ErrorDetail()
				if d.Location != "" {
					body.Details = append(body.Details, d.Location+": "+d.Message)
					continue
				}
			}
			body.Details = append(body.Details, err.Error())
		}
		return body
	}
}

// badRequest reports input errors as 400 with the error text as detail.
func badRequest(msg string, err error) error {
	if err == nil {
		return huma.Error400BadRequest(msg)
	}
	return huma.Error400BadRequest(msg, err)
}

func NewAPI(r chi.Router) huma.API {
	config := huma.DefaultConfig("Hi Events API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
	}
	return humachi.New(r, config)
}
