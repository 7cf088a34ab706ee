package graphql

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Request is the JSON body POSTed to the GraphQL endpoint
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is the GraphQL response envelope
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors"`
}

// ResponseError is one entry of the GraphQL errors array
type ResponseError struct {
	Message    string   `json:"message"`
	Path       []any    `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

var operationRe = regexp.MustCompile(`^\s*(?:query|mutation|subscription)\s+([_A-Za-z][_0-9A-Za-z]*)`)

// OperationName extracts the operation name of a query document, or
// "anonymous" when it has none
func OperationName(query string) string {
	if m := operationRe.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	return "anonymous"
}

// NewRequest builds a request body for query
func NewRequest(query string, variables map[string]any) Request {
	req := Request{
		Query:     strings.TrimSpace(query),
		Variables: variables,
	}
	if name := OperationName(query); name != "anonymous" {
		req.OperationName = name
	}
	return req
}
