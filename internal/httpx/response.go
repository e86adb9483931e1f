package httpx

import (
	"encoding/json"
	"net/http"
	"os"
)

// Response is the envelope every API endpoint returns.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"success":false,"message":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Response{Success: true, Message: message, Data: data})
}

// OKCount writes a success envelope carrying a collection and its size.
func OKCount(w http.ResponseWriter, status int, message string, data any, count int) {
	JSON(w, status, Response{Success: true, Message: message, Data: data, Count: &count})
}

// Fail writes a failure envelope without internal detail.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Response{Success: false, Message: message})
}

// FailEmpty writes a failure envelope with an explicit empty data list,
// used by list endpoints when the store has no rows.
func FailEmpty(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Response{Success: false, Message: message, Data: []any{}})
}

// ServerError writes a 500 envelope. The underlying error text is only
// exposed outside production.
func ServerError(w http.ResponseWriter, message string, err error) {
	resp := Response{Success: false, Message: message}
	if err != nil && os.Getenv("APP_ENV") != "production" {
		resp.Error = err.Error()
	}
	JSON(w, http.StatusInternalServerError, resp)
}
