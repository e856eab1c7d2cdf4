// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil_test

import (
	"context"
	"errors"
	"time"

	"git.skymind.io/skil-go.git/sdk/go/skil"
	check "gopkg.in/check.v1"
)

// deployedSuite adds a registered model and an empty deployment to
// serverSuite.
type deployedSuite struct {
	serverSuite
	exp   *skil.Experiment
	dep   *skil.Deployment
	model *skil.Model
}

func (s *deployedSuite) SetUpTest(c *check.C) {
	s.serverSuite.SetUpTest(c)
	ws, err := skil.NewWorkSpace(s.ctx, s.client, "ws", "")
	c.Assert(err, check.IsNil)
	s.exp, err = skil.NewExperiment(s.ctx, ws, "exp", "")
	c.Assert(err, check.IsNil)
	s.model, err = skil.NewModel(s.ctx, s.exp, skil.ModelOptions{Location: "file:///models/iris.pb", Name: "iris"})
	c.Assert(err, check.IsNil)
	s.dep, err = skil.NewDeployment(s.ctx, s.client, "dep")
	c.Assert(err, check.IsNil)
}

var _ = check.Suite(&ServiceSuite{})

type ServiceSuite struct {
	deployedSuite
}

func (s *ServiceSuite) stateCalls(svc *skil.ModelService) int {
	n := 0
	for _, call := range s.srv.Calls() {
		if call == "POST /deployment/"+s.dep.ID+"/model/"+svc.ModelDeployment().ID+"/state" {
			n++
		}
	}
	return n
}

func (s *ServiceSuite) TestDeployWithoutStart(c *check.C) {
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	c.Check(svc.Model(), check.Equals, s.model)
	c.Check(svc.Deployment(), check.Equals, s.dep)
	c.Check(svc.Name(), check.Equals, "iris")
	c.Check(svc.ModelDeployment().Scale, check.Equals, 1)
	state, err := svc.State(s.ctx)
	c.Assert(err, check.IsNil)
	c.Check(state, check.Equals, skil.ModelStateStopped)
	c.Check(s.stateCalls(svc), check.Equals, 0)
}

func (s *ServiceSuite) TestStartPolls(c *check.C) {
	s.srv.TransitionPolls = 3
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	c.Check(svc.ModelDeployment().State, check.Equals, skil.ModelStateStarted)
	c.Check(s.srv.Started("iris"), check.Equals, true)
	c.Check(s.stateCalls(svc), check.Equals, 4)
}

func (s *ServiceSuite) TestStartAlreadyStarted(c *check.C) {
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	c.Assert(svc.Start(s.ctx), check.IsNil)
	c.Check(s.stateCalls(svc), check.Equals, 2)
}

func (s *ServiceSuite) TestSettleDelay(c *check.C) {
	s.client.Poll.SettleDelay = 50 * time.Millisecond
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	t0 := time.Now()
	c.Assert(svc.Start(s.ctx), check.IsNil)
	c.Check(time.Since(t0) >= 50*time.Millisecond, check.Equals, true)

	t0 = time.Now()
	c.Assert(svc.Stop(s.ctx), check.IsNil)
	c.Check(time.Since(t0) < 50*time.Millisecond, check.Equals, true)
}

func (s *ServiceSuite) TestSettleDelayCancel(c *check.C) {
	s.client.Poll.SettleDelay = time.Hour
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	c.Check(errors.Is(svc.Start(ctx), context.DeadlineExceeded), check.Equals, true)
}

func (s *ServiceSuite) TestStop(c *check.C) {
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	s.srv.TransitionPolls = 2
	c.Assert(svc.Stop(s.ctx), check.IsNil)
	c.Check(svc.ModelDeployment().State, check.Equals, skil.ModelStateStopped)
	c.Check(s.srv.Started("iris"), check.Equals, false)
	// 1 for start, 3 for stop
	c.Check(s.stateCalls(svc), check.Equals, 4)
}

func (s *ServiceSuite) TestPollLimit(c *check.C) {
	s.client.Poll.MaxAttempts = 2
	s.srv.TransitionPolls = 10
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	err = svc.Start(s.ctx)
	c.Check(errors.Is(err, skil.ErrPollLimit), check.Equals, true)
	c.Check(err, check.ErrorMatches, `.*"iris" still "starting" after 2 polls`)
	c.Check(s.stateCalls(svc), check.Equals, 3)
}

func (s *ServiceSuite) TestCancelWhilePolling(c *check.C) {
	s.client.Poll.Interval = 10 * time.Millisecond
	s.srv.StuckState = "starting"
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	ctx, cancel := context.WithTimeout(s.ctx, 100*time.Millisecond)
	defer cancel()
	c.Check(errors.Is(svc.Start(ctx), context.DeadlineExceeded), check.Equals, true)
}

func (s *ServiceSuite) TestFailedState(c *check.C) {
	s.srv.TransitionPolls = 1
	s.srv.StuckState = "failed"
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	err = svc.Start(s.ctx)
	var se *skil.StateError
	c.Assert(errors.As(err, &se), check.Equals, true)
	c.Check(se.State, check.Equals, skil.ModelStateFailed)
	c.Check(se.Want, check.Equals, skil.ModelStateStarted)
	c.Check(err, check.ErrorMatches, `model "iris" is in state "failed", cannot reach "started"`)
}

func (s *ServiceSuite) TestNotDeployed(c *check.C) {
	svc := skil.NewModelService(s.dep, s.model, nil)
	c.Check(svc.Start(s.ctx), check.Equals, skil.ErrNotDeployed)
	c.Check(svc.Stop(s.ctx), check.Equals, skil.ErrNotDeployed)
	_, err := svc.State(s.ctx)
	c.Check(err, check.Equals, skil.ErrNotDeployed)
	_, err = svc.Predict(s.ctx, "", mustArray(c, []int{1}, 1))
	c.Check(err, check.Equals, skil.ErrNotDeployed)
}

func (s *ServiceSuite) TestGetModelDeployment(c *check.C) {
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{Scale: 2})
	c.Assert(err, check.IsNil)
	md, err := skil.GetModelDeployment(s.ctx, s.dep, svc.ModelDeployment().ID)
	c.Assert(err, check.IsNil)
	c.Check(md.Name, check.Equals, "iris")
	c.Check(md.Scale, check.Equals, 2)
	c.Check(md.DeploymentID, check.Equals, s.dep.ID)

	// A service reattached to an existing deployment can be started.
	again := skil.NewModelService(s.dep, s.model, md)
	c.Check(again.Start(s.ctx), check.IsNil)
}

func (s *ServiceSuite) TestUndeploy(c *check.C) {
	svc, err := s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	id := svc.ModelDeployment().ID
	c.Assert(svc.Undeploy(s.ctx), check.IsNil)
	c.Check(svc.ModelDeployment(), check.IsNil)
	_, ok := s.srv.Object("modeldeployments", id)
	c.Check(ok, check.Equals, false)
	c.Check(svc.Undeploy(s.ctx), check.Equals, skil.ErrNotDeployed)
	c.Check(svc.Start(s.ctx), check.Equals, skil.ErrNotDeployed)
}

func mustArray(c *check.C, shape []int, data ...float64) *skil.NDArray {
	a, err := skil.NewNDArray(shape, data)
	c.Assert(err, check.IsNil)
	return a
}
