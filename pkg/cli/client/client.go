/* Copyright 2025 BobbySync Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package client talks to the BobbySync server
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobbysync/bobbysync/pkg/cli/log"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrContentTypeMismatch is an error for a response that is not JSON
var ErrContentTypeMismatch = errors.New("content type mismatch")

// HTTPError represents an HTTP error response from the server
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`response %d "%s"`, e.StatusCode, e.Message)
}

// IsUnauthorized returns true if the error is a 401 Unauthorized error
func (e *HTTPError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFound returns true if the error is a 404 Not Found error
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsHTTPError reports whether err was caused by an error response with the
// given status code
func IsHTTPError(err error, statusCode int) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}

	return he.StatusCode == statusCode
}

const contentTypeApplicationJSON = "application/json"

const (
	// clientRateLimitPerSecond is the max requests per second the client will
	// make. It stays under the server's per-IP limit.
	clientRateLimitPerSecond = 15
	// clientRateLimitBurst is the burst capacity for rate limiting
	clientRateLimitBurst = 45
	// defaultTimeout bounds every request
	defaultTimeout = 30 * time.Second
)

// rateLimitedTransport wraps an http.RoundTripper with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting
func NewRateLimitedHTTPClient() *http.Client {
	interval := time.Second / time.Duration(clientRateLimitPerSecond)

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Every(interval), clientRateLimitBurst),
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultTimeout,
	}
}

// Client is a client of the sync API
type Client struct {
	// Endpoint is the API root, including the /v1 prefix
	Endpoint  string
	AuthToken string
	Version   string

	hc *http.Client
}

// New returns a client for the given API endpoint. A nil http client
// falls back to a rate limited one.
func New(endpoint, authToken, version string, hc *http.Client) *Client {
	if hc == nil {
		hc = NewRateLimitedHTTPClient()
	}

	return &Client{
		Endpoint:  strings.TrimRight(endpoint, "/"),
		AuthToken: authToken,
		Version:   version,
		hc:        hc,
	}
}

// baseURL returns the server root, which is the endpoint without its
// version prefix
func (c *Client) baseURL() string {
	return strings.TrimSuffix(c.Endpoint, "/v1")
}

func (c *Client) getReq(url, method string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "constructing http request")
	}

	req.Header.Set("CLI-Version", c.Version)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeApplicationJSON)
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.AuthToken))
	}

	return req, nil
}

// checkRespErr turns an error response into an HTTPError carrying the
// error code sent by the server
func checkRespErr(res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "server responded with %d but client could not read the response body", res.StatusCode)
	}

	msg := strings.TrimRight(string(body), "\n")

	var er ops.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	return &HTTPError{
		StatusCode: res.StatusCode,
		Message:    msg,
	}
}

func checkContentType(res *http.Response) error {
	got := res.Header.Get("Content-Type")
	if !strings.HasPrefix(got, contentTypeApplicationJSON) {
		return errors.Wrapf(ErrContentTypeMismatch, "got: '%s' want: '%s'. Did you configure your endpoint correctly?", got, contentTypeApplicationJSON)
	}

	return nil
}

// do performs a request and decodes the JSON response into dest
func (c *Client) do(method, url string, payload interface{}, dest interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshalling payload")
		}
		body = bytes.NewReader(b)
	}

	req, err := c.getReq(url, method, body)
	if err != nil {
		return errors.Wrap(err, "getting request")
	}

	log.Debug("HTTP %s %s\n", method, url)

	res, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}
	defer res.Body.Close()

	log.Debug("HTTP %d %s\n", res.StatusCode, res.Status)

	if err = checkRespErr(res); err != nil {
		return errors.Wrap(err, "server responded with an error")
	}
	if err = checkContentType(res); err != nil {
		return errors.Wrap(err, "unexpected Content-Type")
	}

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return errors.Wrap(err, "decoding the response body")
	}

	return nil
}

// Push sends a batch of operations
func (c *Client) Push(after int64, batch []ops.Operation) (ops.PushResponse, error) {
	var ret ops.PushResponse

	payload := ops.PushRequest{After: after, Ops: batch}
	if payload.Ops == nil {
		payload.Ops = []ops.Operation{}
	}

	if err := c.do(http.MethodPost, c.Endpoint+"/push", payload, &ret); err != nil {
		return ret, errors.Wrap(err, "pushing")
	}

	return ret, nil
}

// Pull fetches at most limit operations after the given version
func (c *Client) Pull(after int64, limit int) (ops.PullResponse, error) {
	ret := ops.PullResponse{Ops: []ops.Operation{}}

	q := url.Values{}
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("limit", strconv.Itoa(limit))

	var page struct {
		Ops    []json.RawMessage `json:"ops"`
		Latest int64             `json:"latest"`
	}
	if err := c.do(http.MethodGet, c.Endpoint+"/pull?"+q.Encode(), nil, &page); err != nil {
		return ret, errors.Wrap(err, "pulling")
	}
	ret.Latest = page.Latest

	for _, raw := range page.Ops {
		if v := ops.EntryVersion(raw); v > ret.Through {
			ret.Through = v
		}

		op, ok := ops.DecodeLoose(raw)
		if !ok {
			log.Debug("skipping a malformed operation: %s\n", string(raw))
			ret.Malformed++
			continue
		}

		ret.Ops = append(ret.Ops, op)
	}

	return ret, nil
}

// GetSnapshot fetches the stored snapshot. It returns nil if the server
// has none.
func (c *Client) GetSnapshot() (*ops.Snapshot, error) {
	var ret ops.Snapshot

	err := c.do(http.MethodGet, c.Endpoint+"/snapshot", nil, &ret)
	if IsHTTPError(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "getting the snapshot")
	}

	return &ret, nil
}

// PutSnapshot replaces the stored snapshot. A nil version lets the server
// use its current version.
func (c *Client) PutSnapshot(version *int64, data ops.SnapshotData) (ops.PutSnapshotResponse, error) {
	var ret ops.PutSnapshotResponse

	b, err := json.Marshal(data)
	if err != nil {
		return ret, errors.Wrap(err, "marshalling the snapshot")
	}

	payload := ops.PutSnapshotRequest{
		Version: version,
		TakenAt: time.Now().UTC().Format(time.RFC3339),
		Data:    b,
	}
	if err := c.do(http.MethodPut, c.Endpoint+"/snapshot", payload, &ret); err != nil {
		return ret, errors.Wrap(err, "putting the snapshot")
	}

	return ret, nil
}

// Health fetches the server status
func (c *Client) Health() (ops.HealthResponse, error) {
	var ret ops.HealthResponse

	if err := c.do(http.MethodGet, c.baseURL()+"/healthz", nil, &ret); err != nil {
		return ret, errors.Wrap(err, "checking health")
	}

	return ret, nil
}
