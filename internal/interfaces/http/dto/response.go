package dto

import "github.com/homeservices/backend/internal/domain/shared"

// Response is the envelope of every API body. Exactly one of Data and Error is set.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail is one failing field of a rejected request
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes the page a list response holds
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Paged wraps one page of a list with its position in the full result
func Paged(data any, total int64, page, pageSize int) Response {
	r := OK(data)
	r.Meta = &Meta{Total: total, Page: page, PageSize: pageSize, TotalPages: shared.TotalPages(total, pageSize)}
	return r
}

// Fail builds an error body; requestID may be empty
func Fail(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, RequestID: requestID}}
}

// FailValidation reports rejected request fields
func FailValidation(message, requestID string, details []ValidationDetail) Response {
	r := Fail(shared.CodeValidation, message, requestID)
	r.Error.Details = details
	return r
}

// FailDomain reports a domain error with its code and field details
func FailDomain(err *shared.DomainError, requestID string) Response {
	r := Fail(err.Code, err.Message, requestID)
	for _, d := range err.Details {
		r.Error.Details = append(r.Error.Details, ValidationDetail{Field: d.Field, Message: d.Message})
	}
	return r
}
