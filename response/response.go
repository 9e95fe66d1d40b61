package response

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Error    bool        `json:"error"`
	Message  string      `json:"message,omitempty"`
	Messages []string    `json:"messages"`
	Result   interface{} `json:"result"`
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteError renders the error with its status code
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	write(w, e.StatusCode, envelope{
		Error:    true,
		Message:  e.Message,
		Messages: e.Messages,
		Result:   e.Result,
	})
}

// WriteResponse renders result with status 200
func WriteResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	write(w, http.StatusOK, envelope{
		Messages: []string{},
		Result:   result,
	})
}
