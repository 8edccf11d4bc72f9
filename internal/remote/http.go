// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/logging"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
)

// Credentials identify one remote account.
type Credentials struct {
	// LoginURL is the OAuth host, e.g. https://login.salesforce.com.
	LoginURL      string
	Username      string
	Password      string
	SecurityToken string
	ClientID      string
	ClientSecret  string
	// JWTKey is a PEM RSA private key. When set, the JWT bearer flow is used
	// instead of the password flow.
	JWTKey     []byte
	APIVersion string
}

// Options tune the HTTP client.
type Options struct {
	Timeout time.Duration
	Logger  *pterm.Logger
	// Client overrides the underlying HTTP client (tests).
	Client *http.Client
}

// HTTP implements API over the REST endpoints.
type HTTP struct {
	creds   Credentials
	version string
	client  *http.Client
	log     *pterm.Logger
	now     func() time.Time
}

var _ API = (*HTTP)(nil)

// New creates a REST client. A missing login URL is a configuration error.
func New(creds Credentials, opts Options) (*HTTP, error) {
	if strings.TrimSpace(creds.LoginURL) == "" {
		return nil, ferr.New(ferr.Configuration, "login_url is required")
	}
	if _, err := url.Parse(creds.LoginURL); err != nil {
		return nil, ferr.Wrap(ferr.Configuration, "login_url is not a valid URL", err)
	}
	creds.LoginURL = strings.TrimRight(creds.LoginURL, "/")

	version := strings.TrimPrefix(creds.APIVersion, "v")
	if version == "" {
		version = DefaultAPIVersion
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTP{
		creds:   creds,
		version: version,
		client:  client,
		log:     logging.OrNop(opts.Logger),
		now:     time.Now,
	}, nil
}

func (h *HTTP) dataPath(s Session, suffix string) string {
	return strings.TrimRight(s.InstanceURL, "/") + "/services/data/v" + h.version + suffix
}

// request describes one authenticated call.
type request struct {
	op      string
	method  string
	url     string
	body    any
	headers map[string]string
}

// do sends r and returns the raw 2xx body. Non-2xx answers come back as
// classified APIErrors.
func (h *HTTP) do(ctx context.Context, s Session, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	return h.send(req, r.op, reqID)
}

func (h *HTTP) send(req *http.Request, op, reqID string) ([]byte, error) {
	start := h.now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Debug("remote call failed", h.log.Args("op", op, "request_id", reqID, "error", logging.Mask(err.Error())))
		return nil, ferr.Wrap(ferr.Transport, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ferr.Wrap(ferr.Transport, op+": read response", err)
	}
	h.log.Debug("remote call", h.log.Args(
		"op", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", h.now().Sub(start).Round(time.Millisecond).String(),
	))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(op, decodeAPIError(resp.StatusCode, data, reqID))
	}
	return data, nil
}

// DescribeObject calls GET sobjects/{object}/describe.
func (h *HTTP) DescribeObject(ctx context.Context, s Session, object string) (*DescribeResult, error) {
	const op = "describe"
	data, err := h.do(ctx, s, request{
		op:     op,
		method: http.MethodGet,
		url:    h.dataPath(s, "/sobjects/"+url.PathEscape(object)+"/describe"),
	})
	if err != nil {
		return nil, err
	}
	if !isJSON(data, '{') {
		return nil, violation(op, "expected an object for %s", object)
	}
	var out DescribeResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, violation(op, "decode %s: %v", object, err)
	}
	return &out, nil
}

func (h *HTTP) Query(ctx context.Context, s Session, soql string) ([]Record, error) {
	return h.query(ctx, s, "query", soql)
}

func (h *HTTP) QueryAll(ctx context.Context, s Session, soql string) ([]Record, error) {
	return h.query(ctx, s, "queryAll", soql)
}

func (h *HTTP) query(ctx context.Context, s Session, endpoint, soql string) ([]Record, error) {
	next := h.dataPath(s, "/"+endpoint+"?q="+url.QueryEscape(soql))
	var all []Record
	for next != "" {
		data, err := h.do(ctx, s, request{op: endpoint, method: http.MethodGet, url: next})
		if err != nil {
			return nil, err
		}
		if !isJSON(data, '{') {
			return nil, violation(endpoint, "expected a result object")
		}
		var page QueryResult
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, violation(endpoint, "decode result: %v", err)
		}
		if !isJSON(page.Records, '[') {
			return nil, violation(endpoint, "records is not an array")
		}
		var records []Record
		if err := json.Unmarshal(page.Records, &records); err != nil {
			return nil, violation(endpoint, "decode records: %v", err)
		}
		all = append(all, records...)

		next = ""
		if !page.Done && page.NextRecordsURL != "" {
			next = strings.TrimRight(s.InstanceURL, "/") + page.NextRecordsURL
		}
	}
	if all == nil {
		all = []Record{}
	}
	return all, nil
}

type collection struct {
	AllOrNone bool     `json:"allOrNone"`
	Records   []Record `json:"records"`
}

func (h *HTTP) Create(ctx context.Context, s Session, records []Record, opts CallOptions) ([]SaveResult, error) {
	return h.save(ctx, s, "create", http.MethodPost, records, opts)
}

func (h *HTTP) Update(ctx context.Context, s Session, records []Record, opts CallOptions) ([]SaveResult, error) {
	return h.save(ctx, s, "update", http.MethodPatch, records, opts)
}

func (h *HTTP) save(ctx context.Context, s Session, op, method string, records []Record, opts CallOptions) ([]SaveResult, error) {
	headers := map[string]string{}
	if op == "create" {
		// assignment rules only run when asked for
		headers["Sforce-Auto-Assign"] = strings.ToUpper(fmt.Sprint(opts.AutoAssign))
	}
	data, err := h.do(ctx, s, request{
		op:      op,
		method:  method,
		url:     h.dataPath(s, "/composite/sobjects"),
		body:    collection{AllOrNone: opts.AllOrNone, Records: records},
		headers: headers,
	})
	if err != nil {
		return nil, err
	}
	return decodeSaveResults(op, data, len(records))
}

func (h *HTTP) Delete(ctx context.Context, s Session, ids []string, opts CallOptions) ([]SaveResult, error) {
	const op = "delete"
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("allOrNone", fmt.Sprint(opts.AllOrNone))
	data, err := h.do(ctx, s, request{
		op:     op,
		method: http.MethodDelete,
		url:    h.dataPath(s, "/composite/sobjects?"+q.Encode()),
	})
	if err != nil {
		return nil, err
	}
	return decodeSaveResults(op, data, len(ids))
}

func (h *HTTP) Retrieve(ctx context.Context, s Session, object string, ids, fields []string) ([]*Record, error) {
	const op = "retrieve"
	data, err := h.do(ctx, s, request{
		op:     op,
		method: http.MethodPost,
		url:    h.dataPath(s, "/composite/sobjects/"+url.PathEscape(object)),
		body: struct {
			IDs    []string `json:"ids"`
			Fields []string `json:"fields"`
		}{IDs: ids, Fields: fields},
	})
	if err != nil {
		return nil, err
	}
	if !isJSON(data, '[') {
		return nil, violation(op, "expected an array")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, violation(op, "decode: %v", err)
	}
	if len(raw) != len(ids) {
		return nil, violation(op, "sent %d ids, got %d entries", len(ids), len(raw))
	}
	out := make([]*Record, len(raw))
	for i, r := range raw {
		if isNull(r) {
			continue
		}
		var rec Record
		if err := json.Unmarshal(r, &rec); err != nil {
			return nil, violation(op, "entry %d: %v", i, err)
		}
		if rec.Type == "" {
			rec.Type = object
		}
		out[i] = &rec
	}
	return out, nil
}

func decodeSaveResults(op string, data []byte, want int) ([]SaveResult, error) {
	if !isJSON(data, '[') {
		return nil, violation(op, "expected an array of results")
	}
	var results []SaveResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, violation(op, "decode results: %v", err)
	}
	if len(results) != want {
		return nil, violation(op, "sent %d records, got %d results", want, len(results))
	}
	return results, nil
}

// isJSON reports whether data's first significant byte is open.
func isJSON(data []byte, open byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == open
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
