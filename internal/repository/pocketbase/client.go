// Package pocketbase implements the repository contracts over the PocketBase REST API.
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/convert"
	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/model"
)

const (
	tracerName       = "github.com/and161185/eventflow/internal/repository/pocketbase"
	defaultBatch     = 500
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 1 << 20
)

// TokenSource supplies the auth token attached to every request.
type TokenSource interface {
	Token() string
}

// Client is a thin HTTP client for a PocketBase instance.
type Client struct {
	base   string
	hc     *http.Client
	log    *zap.Logger
	tracer trace.Tracer
	batch  int
}

type options struct {
	transport http.RoundTripper
	tokens    TokenSource
	log       *zap.Logger
	timeout   time.Duration
	batch     int
}

// Option customizes a Client.
type Option func(*options)

// WithTransport sets the underlying round tripper (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option { return func(o *options) { o.transport = rt } }

// WithTokenSource sets where the auth token is read from.
func WithTokenSource(ts TokenSource) Option { return func(o *options) { o.tokens = ts } }

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithBatchSize sets the page size used by full list fetches.
func WithBatchSize(n int) Option { return func(o *options) { o.batch = n } }

// New constructs a Client for the instance at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("backend url: want http(s)://host, got %q", baseURL)
	}
	o := options{
		transport: http.DefaultTransport,
		log:       zap.NewNop(),
		timeout:   defaultTimeout,
		batch:     defaultBatch,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.batch <= 0 {
		o.batch = defaultBatch
	}
	rt := &logTransport{
		next: &authTransport{next: o.transport, tokens: o.tokens},
		log:  o.log,
	}
	return &Client{
		base:   strings.TrimRight(u.String(), "/"),
		hc:     &http.Client{Transport: rt, Timeout: o.timeout},
		log:    o.log,
		tracer: otel.Tracer(tracerName),
		batch:  o.batch,
	}, nil
}

// BaseURL returns the instance URL without trailing slash.
func (c *Client) BaseURL() string { return c.base }

// FileURL resolves the absolute URL of a file stored on a record.
func (c *Client) FileURL(collection, recordID, filename string) string {
	if collection == "" || recordID == "" || filename == "" {
		return ""
	}
	return c.endpoint(nil, "api", "files", collection, recordID, filename)
}

func (c *Client) endpoint(q url.Values, elems ...string) string {
	var b strings.Builder
	b.WriteString(c.base)
	for _, e := range elems {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(e))
	}
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String()
}

func recordsPath(collection string, id ...string) []string {
	p := []string{"api", "collections", collection, "records"}
	return append(p, id...)
}

// request describes a single API call.
type request struct {
	op          string // span/log name, e.g. "events.list"
	method      string
	path        []string
	query       url.Values
	body        []byte
	contentType string
}

func jsonRequest(op, method string, path []string, v any) (request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("%s: encode body: %w", op, err)
	}
	return request{op: op, method: method, path: path, body: b, contentType: "application/json"}, nil
}

// do executes r and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	ctx, span := c.tracer.Start(ctx, "pocketbase."+r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("pocketbase.path", strings.Join(r.path, "/")),
		),
	)
	defer span.End()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.query, r.path...), body)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", r.op, ctxErr)
		}
		return errs.Network(r.op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		span.SetStatus(codes.Error, apiErr.Error())
		return fmt.Errorf("%s: %w", r.op, apiErr)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

// decodeError reads a PocketBase error body. Older versions send "code",
// newer ones "status"; both carry "message" and per-field "data".
func decodeError(resp *http.Response) *errs.APIError {
	apiErr := &errs.APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return apiErr
	}
	apiErr.Message = body.Message
	if len(body.Data) > 0 {
		var data map[string]errs.FieldIssue
		if json.Unmarshal(body.Data, &data) == nil && len(data) > 0 {
			apiErr.Data = data
		}
	}
	return apiErr
}

// listAll fetches every page of a collection, preserving server order.
func listAll[T any](ctx context.Context, c *Client, op, collection string, opts model.ListOptions) ([]T, error) {
	out := []T{}
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("perPage", strconv.Itoa(c.batch))
		if opts.Sort != "" {
			q.Set("sort", opts.Sort)
		}
		if len(opts.Expand) > 0 {
			q.Set("expand", strings.Join(opts.Expand, ","))
		}
		var res convert.ListResult[T]
		r := request{op: op, method: http.MethodGet, path: recordsPath(collection), query: q}
		if err := c.do(ctx, r, &res); err != nil {
			return nil, err
		}
		out = append(out, res.Items...)
		// The server may cap perPage below the requested batch, so paging
		// follows its totals rather than the batch size.
		if len(res.Items) == 0 || page >= res.TotalPages {
			return out, nil
		}
	}
}
