package main

import (
	"encoding/json"
	"net/http"
)

const ContentTypeJSON = "application/json; charset=UTF-8"

// CustomResponseWriter is a wrapper for http.ResponseWriter. It is
// used to record response details like status code and body size.
type CustomResponseWriter struct {
	http.ResponseWriter
	code  int
	bytes int
	wrote bool
}

// NewCustomResponseWriter provides CustomResponseWriter with 200 as status code.
func NewCustomResponseWriter(rw http.ResponseWriter) *CustomResponseWriter {
	return &CustomResponseWriter{
		ResponseWriter: rw,
		code:           http.StatusOK,
	}
}

// WriteHeader implements http.ResponseWriter interface. Only the first call is forwarded.
func (cw *CustomResponseWriter) WriteHeader(code int) {
	if !cw.wrote {
		cw.code = code
		cw.wrote = true
		cw.ResponseWriter.WriteHeader(code)
	}
}

// Write implements http.ResponseWriter interface.
func (cw *CustomResponseWriter) Write(bytes []byte) (int, error) {
	if !cw.wrote {
		cw.WriteHeader(cw.code)
	}
	n, err := cw.ResponseWriter.Write(bytes)
	cw.bytes += n
	return n, err
}

// Status returns the written status code.
func (cw *CustomResponseWriter) Status() int {
	return cw.code
}

// Bytes returns bytes written as response body.
func (cw *CustomResponseWriter) Bytes() int {
	return cw.bytes
}

// Unwrap returns native response writer and used by
// the http.ResponseController during its operation.
func (cw *CustomResponseWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// APIError is the data model sent when an error occurred during request processing.
type APIError struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func NewAPIError(requestid string, status int, message string, data interface{}) *APIError {
	return &APIError{
		RequestID: requestid,
		Status:    status,
		Message:   message,
		Data:      data,
	}
}

// MessageResponse is the payload served by the index endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteErrorResponse is used to send error response to client.
func WriteErrorResponse(w http.ResponseWriter, errResp *APIError) error {
	return WriteJSON(w, errResp.Status, errResp)
}

// WriteJSON sends the json encoding of v with the given status code.
// The body is written without trailing newline.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
