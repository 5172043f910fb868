package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextCorrelationID is the gin context key under which the correlation id
// middleware stores the per-request id echoed in every envelope.
const ContextCorrelationID = "correlation_id"

// Code is a machine-readable error code callers can branch on,
// distinct from the human-readable message.
type Code string

const (
	CodeAuthRequired Code = "auth_required"
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeUpstream     Code = "upstream"
	CodeInternal     Code = "internal"
)

// Body is the standard API response envelope.
type Body struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	Code          Code        `json:"code,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

func correlationID(c *gin.Context) string {
	return c.GetString(ContextCorrelationID)
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, CorrelationID: correlationID(c)})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data, CorrelationID: correlationID(c)})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with a validation error.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: CodeValidation, CorrelationID: correlationID(c)})
}

// Unauthorized sends 401 with an authentication-required error.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Code: CodeAuthRequired, CorrelationID: correlationID(c)})
}

// Forbidden sends 403 with an authorization error.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: CodeForbidden, CorrelationID: correlationID(c)})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: CodeNotFound, CorrelationID: correlationID(c)})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err, Code: CodeConflict, CorrelationID: correlationID(c)})
}

// Upstream sends 502 for identity/payment provider failures. The raw provider
// error is never forwarded; callers log it with the correlation id instead.
func Upstream(c *gin.Context, err string) {
	c.JSON(http.StatusBadGateway, Body{Success: false, Error: err, Code: CodeUpstream, CorrelationID: correlationID(c)})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err, Code: CodeInternal, CorrelationID: correlationID(c)})
}
