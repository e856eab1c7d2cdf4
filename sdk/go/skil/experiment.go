// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
)

// Experiment is a training run inside a workspace. Models and
// transforms are registered against an experiment.
type Experiment struct {
	ID          string `json:"experimentId"`
	Name        string `json:"experimentName"`
	WorkSpaceID string `json:"modelHistoryId"`
	Description string `json:"experimentDescription"`

	workspace *WorkSpace
}

// NewExperiment creates an experiment in ws.
func NewExperiment(ctx context.Context, ws *WorkSpace, name, description string) (*Experiment, error) {
	c := ws.client
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return nil, err
	}
	req := Experiment{
		Name:        name,
		WorkSpaceID: ws.ID,
		Description: description,
	}
	var exp Experiment
	err = c.RequestAndDecodeContext(ctx, &exp, EndpointExperimentCreate, req, "server", server)
	if err != nil {
		return nil, fmt.Errorf("create experiment %q: %w", name, err)
	}
	exp.workspace = ws
	return &exp, nil
}

// GetExperimentByID looks up an existing experiment in ws.
func GetExperimentByID(ctx context.Context, ws *WorkSpace, id string) (*Experiment, error) {
	c := ws.client
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return nil, err
	}
	var exp Experiment
	err = c.RequestAndDecodeContext(ctx, &exp, EndpointExperimentGet, nil, "server", server, "id", id)
	if err != nil {
		return nil, err
	}
	exp.workspace = ws
	return &exp, nil
}

// WorkSpace returns the workspace the experiment belongs to.
func (exp *Experiment) WorkSpace() *WorkSpace {
	return exp.workspace
}

// Delete removes the experiment from the server.
func (exp *Experiment) Delete(ctx context.Context) error {
	c := exp.workspace.client
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return err
	}
	return c.RequestAndDecodeContext(ctx, nil, EndpointExperimentDelete, nil, "server", server, "id", exp.ID)
}
