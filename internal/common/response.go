package common

import (
	"encoding/json"
	"net/http"
)

type ResponseType string

const (
	ResponseTypeObject ResponseType = "object"
	ResponseTypeArray  ResponseType = "array"
	ResponseTypeError  ResponseType = "error"
)

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Response is the envelope of every api response. Exactly one of Object,
// Array or Error is set, as ResponseType says.
type Response struct {
	ResponseType ResponseType `json:"response_type"`
	Object       any          `json:"object,omitempty"`
	Array        any          `json:"array,omitempty"`
	Meta         any          `json:"meta,omitempty"`
	Error        string       `json:"error,omitempty"`
}

func Body(w http.ResponseWriter, body any, meta any) error {
	return write(w, http.StatusOK, &Response{ResponseType: ResponseTypeObject, Object: body, Meta: meta})
}

func BodyMultiple(w http.ResponseWriter, body any, meta any) error {
	return write(w, http.StatusOK, &Response{ResponseType: ResponseTypeArray, Array: body, Meta: meta})
}

// ErrorBody writes err with the status code it maps to
func ErrorBody(w http.ResponseWriter, err error) {
	ErrorStatus(w, StatusCode(err), err)
}

// ErrorStatus writes err with an explicit status
func ErrorStatus(w http.ResponseWriter, status int, err error) {
	write(w, status, &Response{ResponseType: ResponseTypeError, Error: err.Error()})
}

// write encodes before touching the header so callers can still report a
// marshal failure with a status
func write(w http.ResponseWriter, status int, resp *Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}

	_, err = w.Write(b)
	return err
}
