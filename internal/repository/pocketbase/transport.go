package pocketbase

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// authTransport attaches the session token. PocketBase expects the raw token
// in the Authorization header.
type authTransport struct {
	next   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens != nil && req.Header.Get("Authorization") == "" {
		if tok := t.tokens.Token(); tok != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", tok)
		}
	}
	return t.next.RoundTrip(req)
}

// logTransport logs request metadata; payloads are never logged.
type logTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		if id, err := uuid.NewV4(); err == nil {
			reqID = id.String()
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, reqID)
		}
	}

	resp, err := t.next.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("dur", time.Since(start)),
		zap.String("request_id", reqID),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return resp, err
	}
	fields = append(fields, zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		t.log.Warn("http", fields...)
	} else {
		t.log.Info("http", fields...)
	}
	return resp, nil
}
