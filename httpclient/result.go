package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CodeSuccess = 0
	CodeError   = 1
)

var (
	ErrEmptyResponse   = errors.New("response has no data")
	ErrInvalidResponse = errors.New("invalid response")
	ErrMissingCode     = errors.New("response has no result code")
)

// Result is the unified body returned by the admin API.
type Result struct {
	Code    *int            `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// ResultError is returned when the API answers with a non-success code.
type ResultError struct {
	Code    int
	Message string
}

func (e *ResultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.Code)
	}
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// StatusError is returned for responses with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func parseResult(data []byte) (*Result, error) {
	result := &Result{}
	if er := json.Unmarshal(data, result); er != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, er)
	}
	if result.Code == nil {
		return nil, ErrMissingCode
	}
	if *result.Code != CodeSuccess {
		return nil, &ResultError{Code: *result.Code, Message: result.Message}
	}
	return result, nil
}

func assignResponse(res *Response, out any) error {
	if p, ok := out.(*Response); ok {
		*p = *res
	}
	return nil
}

func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if p, ok := out.(*[]byte); ok {
		*p = append((*p)[:0], data...)
		return nil
	}
	if er := json.Unmarshal(data, out); er != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, er)
	}
	return nil
}
