// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrNotDeployed is returned by service methods that need a
	// model deployment when the service has none.
	ErrNotDeployed = errors.New("no model deployed yet, call Deploy() on a model first")

	// ErrPollLimit is returned by Start and Stop when the model did
	// not reach the requested state within PollConfig.MaxAttempts
	// polls.
	ErrPollLimit = errors.New("model did not reach requested state within poll limit")

	ErrNoImage              = errors.New("no image given")
	ErrUnsupportedInput     = errors.New("unsupported input type")
	ErrNoModelHistoryServer = errors.New("SKIL server does not report a ModelHistoryServer")
)

// TransactionError is returned for any response whose status is not
// 2xx (or 3xx when redirects are not followed).
type TransactionError struct {
	Method     string
	URL        url.URL
	StatusCode int
	Status     string
	errors     []string
}

func (e TransactionError) Error() (s string) {
	s = fmt.Sprintf("request failed: %s %s", e.Method, e.URL.String())
	if e.Status != "" {
		s = s + ": " + e.Status
	}
	if len(e.errors) > 0 {
		s = s + ": " + strings.Join(e.errors, "; ")
	}
	return
}

// HTTPStatus returns the response status code.
func (e TransactionError) HTTPStatus() int {
	return e.StatusCode
}

// SKIL reports failures either as {"errors":[...]} or as a single
// {"message":"..."} object.
type errorBody struct {
	Errors  []string `json:"errors"`
	Message string   `json:"message"`
	Error   string   `json:"error"`
}

func newTransactionError(req *http.Request, resp *http.Response, buf []byte) *TransactionError {
	var e TransactionError
	var body errorBody
	if json.Unmarshal(buf, &body) == nil {
		e.errors = body.Errors
		for _, msg := range []string{body.Message, body.Error} {
			if msg != "" {
				e.errors = append(e.errors, msg)
			}
		}
	}
	e.Method = req.Method
	e.URL = *req.URL
	if resp != nil {
		e.Status = resp.Status
		e.StatusCode = resp.StatusCode
	}
	return &e
}

// StateError is returned by Start and Stop when the server reports a
// model state from which the requested state cannot be reached.
type StateError struct {
	Model string
	State ModelState
	Want  ModelState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("model %q is in state %q, cannot reach %q", e.Model, e.State, e.Want)
}
