// Package model defines shared types for the relay.
package model

import "devfront/internal/header"

// ProxyRequest is an inbound request rewritten for the upstream.
type ProxyRequest struct {
	Method string
	// URI is the request path with the API prefix removed and the raw query
	// kept as received, e.g. "/users/5?expand=1".
	URI    string
	Header header.List
	// Body is nil when the inbound request carried no body.
	Body []byte
}

// ProxyResponse is a fully buffered upstream response.
type ProxyResponse struct {
	StatusCode int
	Header     header.List
	Body       []byte
}

// UpstreamError is the JSON body returned when the upstream cannot be reached.
type UpstreamError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}
