package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix      string     = "r"
	RequestIDHeader      string     = "X-Request-ID"
	ContextRequestID     ContextKey = "request.id"
	ContextRequestNumber ContextKey = "request.number"
	ContextJSONBody      ContextKey = "request.body"
	ContextJSONBodyError ContextKey = "request.body.error"
)

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(ContextRequestNumber).(uint64); ok {
		return val
	}
	return 0
}

// GetJSONBody returns the request body parsed by the JSON body middleware
// and the error met while parsing it. Both are nil for requests without body.
func GetJSONBody(ctx context.Context) (json.RawMessage, error) {
	var body json.RawMessage
	var err error
	if val, ok := ctx.Value(ContextJSONBody).(json.RawMessage); ok {
		body = val
	}
	if val, ok := ctx.Value(ContextJSONBodyError).(error); ok {
		err = val
	}
	return body, err
}

// IsJSONContentType reports whether the header value denotes a json payload.
// It accepts `application/json` and any `+json` suffixed media type.
func IsJSONContentType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}
