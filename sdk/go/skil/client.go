// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"git.skymind.io/skil-go.git/sdk/go/ctxlog"
	"git.skymind.io/skil-go.git/sdk/go/version"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
)

// A Client is an HTTP client with a SKIL API endpoint and a set of
// SKIL credentials.
//
// It offers methods for calling individual SKIL APIs, and is the
// handle shared by every resource and service created through it. A
// Client is safe for concurrent use, but must not be copied after
// first use.
type Client struct {
	// HTTP client used to make requests. If nil,
	// DefaultSecureClient or InsecureHTTPClient will be used.
	Client *http.Client `json:"-"`

	// Protocol scheme: "http", "https", or "" (http)
	Scheme string

	// Hostname (or host:port) of the SKIL server.
	APIHost string

	// Credentials used to obtain AuthToken at the first request, if
	// AuthToken is empty.
	UserID   string
	Password string `json:"-"`

	// Bearer token. Populated by login if empty.
	AuthToken string `json:"-"`

	// Accept unverified certificates. This works only if the
	// Client field is nil: otherwise, it has no effect.
	Insecure bool

	// HTTP headers to add/override in outgoing requests.
	SendHeader http.Header

	// Timeout for requests. NewClientFromConfig and
	// NewClientFromEnv return a Client with a default 5 minute
	// timeout. To disable this timeout and rely on each
	// http.Request's context deadline instead, set Timeout to
	// zero.
	Timeout time.Duration

	// Number of times a failed request is retried. Zero means
	// errors are returned as soon as they happen.
	Retries int

	// Minimum wait between retries (default 1s). The maximum is 30
	// times this.
	RetryWait time.Duration

	// Polling behavior for services created through this client.
	Poll PollConfig

	// If non-nil, request counts and latencies are registered
	// here.
	Registry *prometheus.Registry `json:"-"`

	mtx         sync.Mutex
	serverID    string
	metricsOnce sync.Once
	metrics     *clientMetrics
}

// InsecureHTTPClient is the default http.Client used by a Client with
// Insecure==true and Client==nil.
var InsecureHTTPClient = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true}}}

// DefaultSecureClient is the default http.Client used by a Client otherwise.
var DefaultSecureClient = &http.Client{}

// NewClientFromConfig creates a new Client from the given config.
func NewClientFromConfig(cfg *Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("no Host in config")
	}
	return &Client{
		Scheme:    cfg.Scheme,
		APIHost:   cfg.Host,
		UserID:    cfg.UserID,
		Password:  cfg.Password,
		AuthToken: cfg.AuthToken,
		Insecure:  cfg.Insecure,
		Timeout:   cfg.Timeout,
		Retries:   cfg.Retries,
		Poll:      cfg.Poll,
	}, nil
}

// NewClientFromEnv creates a new Client that uses the default HTTP
// client with the API endpoint and credentials given by the SKIL_*
// environment variables. Unset variables get the same defaults as
// Config.ApplyDefaults.
func NewClientFromEnv() *Client {
	cfg := Config{
		Host:      os.Getenv("SKIL_HOST"),
		Scheme:    os.Getenv("SKIL_SCHEME"),
		UserID:    os.Getenv("SKIL_USER_ID"),
		Password:  os.Getenv("SKIL_PASSWORD"),
		AuthToken: os.Getenv("SKIL_AUTH_TOKEN"),
	}
	if s := strings.ToLower(os.Getenv("SKIL_INSECURE")); s == "1" || s == "yes" || s == "true" {
		cfg.Insecure = true
	}
	if n, err := strconv.Atoi(os.Getenv("SKIL_RETRIES")); err == nil {
		cfg.Retries = n
	}
	cfg.ApplyDefaults()
	c, _ := NewClientFromConfig(&cfg)
	return c
}

type contextKeyEndpoint struct{}

// Do adds Authorization and X-Request-Id headers and then sends req,
// retrying if c.Retries > 0.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	token, err := c.token(req.Context())
	if err != nil {
		return nil, err
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req)
}

// do sends req without logging in first.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", "req-"+uuid.NewString())
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", version.UserAgent())
	}
	for k, v := range c.SendHeader {
		req.Header[k] = v
	}
	var cancel context.CancelFunc
	if c.Timeout > 0 {
		ctx := req.Context()
		ctx, cancel = context.WithDeadline(ctx, time.Now().Add(c.Timeout))
		req = req.WithContext(ctx)
	}
	label, _ := req.Context().Value(contextKeyEndpoint{}).(string)
	if label == "" {
		label = req.Method + " other"
	}
	logger := ctxlog.FromContext(req.Context()).WithField("RequestID", req.Header.Get("X-Request-Id"))
	logger.WithField("URL", req.URL.String()).Debugf("%s", req.Method)

	t0 := time.Now()
	resp, err := c.send(req)
	c.observe(label, resp, err, time.Since(t0))
	if err == nil && cancel != nil {
		// We need to call cancel() eventually, but we can't
		// use "defer cancel()" because the context has to
		// stay alive until the caller has finished reading
		// the response body.
		resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	} else if cancel != nil {
		cancel()
	}
	if err != nil {
		logger.WithError(err).Debug("request failed")
	}
	return resp, err
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.Retries <= 0 {
		return c.httpClient().Do(req)
	}
	rreq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	wait := c.RetryWait
	if wait <= 0 {
		wait = time.Second
	}
	rc := &retryablehttp.Client{
		HTTPClient:   c.httpClient(),
		RetryWaitMin: wait,
		RetryWaitMax: 30 * wait,
		RetryMax:     c.Retries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		// Hand the last response back to DoAndDecode so the
		// caller sees a TransactionError, not a generic
		// "giving up" error.
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.Do(rreq)
}

// cancelOnClose calls a provided CancelFunc when its wrapped
// ReadCloser's Close() method is called.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (coc cancelOnClose) Close() error {
	err := coc.ReadCloser.Close()
	coc.cancel()
	return err
}

// DoAndDecode performs req and unmarshals the response (which must be
// JSON) into dst. Use this instead of RequestAndDecodeContext if you
// need more control of the http.Request object.
func (c *Client) DoAndDecode(dst interface{}, req *http.Request) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(dst, req, resp)
}

func decodeResponse(dst interface{}, req *http.Request, resp *http.Response) error {
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return newTransactionError(req, resp, buf)
	case dst == nil || len(bytes.TrimSpace(buf)) == 0:
		return nil
	default:
		return json.Unmarshal(buf, dst)
	}
}

// RequestAndDecodeContext sends body (JSON-encoded, unless it is nil
// or already an io.Reader) to the given endpoint and unmarshals the
// JSON response into dst. vars fill in the endpoint's path
// placeholders, see APIEndpoint.Expand.
func (c *Client) RequestAndDecodeContext(ctx context.Context, dst interface{}, ep APIEndpoint, body interface{}, vars ...string) error {
	var rdr io.Reader
	switch body := body.(type) {
	case nil:
	case io.Reader:
		rdr = body
	default:
		j, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(j)
	}
	req, err := c.newRequest(ctx, ep, rdr, vars...)
	if err != nil {
		return err
	}
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.DoAndDecode(dst, req)
}

func (c *Client) newRequest(ctx context.Context, ep APIEndpoint, body io.Reader, vars ...string) (*http.Request, error) {
	if c.APIHost == "" {
		return nil, errors.New("skil.Client cannot perform request: APIHost is not set")
	}
	ctx = context.WithValue(ctx, contextKeyEndpoint{}, ep.String())
	return http.NewRequestWithContext(ctx, ep.Method, c.apiURL(ep.Expand(vars...)), body)
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// token returns c.AuthToken, logging in with c.UserID and c.Password
// to obtain one if necessary.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.AuthToken != "" || c.UserID == "" {
		return c.AuthToken, nil
	}
	j, err := json.Marshal(loginRequest{UserID: c.UserID, Password: c.Password})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, EndpointLogin, bytes.NewReader(j))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	var lr loginResponse
	if err := decodeResponse(&lr, req, resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if lr.Token == "" {
		return "", errors.New("login: server returned no token")
	}
	c.AuthToken = lr.Token
	return c.AuthToken, nil
}

// ServiceInfo describes one of the services a SKIL server runs
// internally (model history server, zeppelin, etc).
type ServiceInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

const modelHistoryServerName = "ModelHistoryServer"

// ModelHistoryServerID returns the id of the server's model history
// service, which owns workspaces, experiments and models. The result
// is cached.
func (c *Client) ModelHistoryServerID(ctx context.Context) (string, error) {
	c.mtx.Lock()
	id := c.serverID
	c.mtx.Unlock()
	if id != "" {
		return id, nil
	}
	var svcs []ServiceInfo
	err := c.RequestAndDecodeContext(ctx, &svcs, EndpointServiceList, nil)
	if err != nil {
		return "", err
	}
	for _, svc := range svcs {
		if svc.Name == modelHistoryServerName {
			c.mtx.Lock()
			c.serverID = svc.ID
			c.mtx.Unlock()
			return svc.ID, nil
		}
	}
	return "", ErrNoModelHistoryServer
}

func (c *Client) httpClient() *http.Client {
	switch {
	case c.Client != nil:
		return c.Client
	case c.Insecure:
		return InsecureHTTPClient
	default:
		return DefaultSecureClient
	}
}

func (c *Client) apiURL(path string) string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + c.APIHost + "/" + path
}
