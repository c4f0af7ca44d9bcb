// AngelaMos | 2026
// response.go

package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Payload fields are merged into the top-level response object next to
// "success" and "message".
type Payload map[string]any

type Pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Current: page, Pages: pages, Total: total}
}

type errorBody struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"code,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respond(w http.ResponseWriter, status int, message string, payload Payload) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	if message != "" {
		body["message"] = message
	}
	JSON(w, status, body)
}

func OK(w http.ResponseWriter, payload Payload) {
	respond(w, http.StatusOK, "", payload)
}

func OKMessage(w http.ResponseWriter, message string, payload Payload) {
	respond(w, http.StatusOK, message, payload)
}

func Created(w http.ResponseWriter, message string, payload Payload) {
	respond(w, http.StatusCreated, message, payload)
}

func Paginated(
	w http.ResponseWriter,
	key string,
	items any,
	page, limit, total int,
) {
	OK(w, Payload{
		key:          items,
		"pagination": NewPagination(page, limit, total),
	})
}

// JSONError writes err as the standard failure envelope. Anything that is
// not an *AppError is reported as a bare 500 without leaking its text.
func JSONError(w http.ResponseWriter, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}

	JSON(w, appErr.StatusCode, errorBody{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
		Errors:  appErr.Fields,
	})
}

func BadRequest(w http.ResponseWriter, message string) {
	JSONError(w, BadRequestError(message))
}

func Unauthorized(w http.ResponseWriter, message string) {
	JSONError(w, UnauthorizedError(message))
}

func Forbidden(w http.ResponseWriter, message string) {
	JSONError(w, ForbiddenError(message))
}

func NotFound(w http.ResponseWriter, resource string) {
	JSONError(w, NotFoundError(resource))
}

func InternalServerError(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	JSONError(w, InternalError(err))
}
