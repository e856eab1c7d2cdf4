// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
	"time"

	"git.skymind.io/skil-go.git/sdk/go/ctxlog"
	"github.com/sirupsen/logrus"
)

// A Service is a live endpoint backed by a deployed model or
// transform, or a Pipeline of them.
type Service interface {
	// Start asks the server to start serving, and waits until it
	// reports that it has.
	Start(ctx context.Context) error
	// Stop asks the server to stop serving, and waits until it
	// reports that it has.
	Stop(ctx context.Context) error
}

// service holds what every deployed model or transform has in
// common, and implements its lifecycle.
type service struct {
	client     *Client
	deployment *Deployment
	md         *ModelDeployment
}

func newService(dep *Deployment, md *ModelDeployment) *service {
	return &service{client: dep.client, deployment: dep, md: md}
}

// Deployment returns the deployment the service runs in.
func (s *service) Deployment() *Deployment {
	return s.deployment
}

// ModelDeployment returns the server's record of the deployed model
// or transform, or nil if it was never deployed.
func (s *service) ModelDeployment() *ModelDeployment {
	return s.md
}

// Name is the model or transform name used in endpoint URLs.
func (s *service) Name() string {
	if s.md == nil {
		return ""
	}
	return s.md.Name
}

func (s *service) deployed() error {
	if s == nil || s.md == nil || s.md.ID == "" {
		return ErrNotDeployed
	}
	return nil
}

type setStateRequest struct {
	State string `json:"state"`
}

func (s *service) setState(ctx context.Context, action string) (ModelState, error) {
	var md ModelDeployment
	err := s.client.RequestAndDecodeContext(ctx, &md, EndpointModelStateChange,
		setStateRequest{State: action},
		"deployment", s.deployment.ID, "model", s.md.ID)
	if err != nil {
		return "", err
	}
	s.md.State = md.State
	return md.State, nil
}

// State returns the current state reported by the server.
func (s *service) State(ctx context.Context) (ModelState, error) {
	if err := s.deployed(); err != nil {
		return "", err
	}
	var md ModelDeployment
	err := s.client.RequestAndDecodeContext(ctx, &md, EndpointModelGet, nil,
		"deployment", s.deployment.ID, "model", s.md.ID)
	if err != nil {
		return "", err
	}
	s.md.State = md.State
	return md.State, nil
}

// Start issues a "start" state change, then re-issues it every
// Poll.Interval until the server reports ModelStateStarted, and
// finally waits Poll.SettleDelay for the endpoint to become usable.
//
// It returns ErrNotDeployed if there is no model deployment, a
// *StateError if the server reports a failed state, an error
// wrapping ErrPollLimit if Poll.MaxAttempts polls were not enough,
// or ctx.Err() if ctx is done first.
func (s *service) Start(ctx context.Context) error {
	if err := s.deployed(); err != nil {
		return err
	}
	logger := s.logger(ctx)
	logger.Info("starting to serve")
	if err := s.transition(ctx, logger, "start", ModelStateStarted); err != nil {
		return err
	}
	if d := s.client.Poll.SettleDelay; d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	logger.Info("model server started")
	return nil
}

// Stop issues a "stop" state change and waits, the same way as Start,
// until the server reports ModelStateStopped.
func (s *service) Stop(ctx context.Context) error {
	if err := s.deployed(); err != nil {
		return err
	}
	logger := s.logger(ctx)
	if err := s.transition(ctx, logger, "stop", ModelStateStopped); err != nil {
		return err
	}
	logger.Info("model server stopped")
	return nil
}

// Undeploy removes the model or transform from its deployment. The
// service cannot be used afterwards.
func (s *service) Undeploy(ctx context.Context) error {
	if err := s.deployed(); err != nil {
		return err
	}
	err := s.client.RequestAndDecodeContext(ctx, nil, EndpointModelUndeploy, nil,
		"deployment", s.deployment.ID, "model", s.md.ID)
	if err != nil {
		return err
	}
	s.md = nil
	return nil
}

func (s *service) transition(ctx context.Context, logger logrus.FieldLogger, action string, want ModelState) error {
	state, err := s.setState(ctx, action)
	if err != nil {
		return err
	}
	interval := s.client.Poll.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for polls := 0; state != want; polls++ {
		if state.failed() {
			return &StateError{Model: s.md.Name, State: state, Want: want}
		}
		if limit := s.client.Poll.MaxAttempts; limit > 0 && polls >= limit {
			return fmt.Errorf("%w: %q still %q after %d polls", ErrPollLimit, s.md.Name, state, polls)
		}
		logger.WithField("State", state).Info("waiting for deployment")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		state, err = s.setState(ctx, action)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) logger(ctx context.Context) logrus.FieldLogger {
	return ctxlog.FromContext(ctx).WithFields(logrus.Fields{
		"Deployment": s.deployment.Name,
		"Model":      s.md.Name,
	})
}
