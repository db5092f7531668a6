package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes body as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError converts err into the error envelope and writes it.
func WriteError(w http.ResponseWriter, err error) {
	status, resp := BuildErrorResponse(err)
	WriteJSON(w, status, resp)
}

// DecodeJSON decodes the request body into v, or returns a ValidationError
// if the body is malformed.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return NewValidationError("malformed request body: " + err.Error())
	}
	return nil
}
