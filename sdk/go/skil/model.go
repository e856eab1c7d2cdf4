// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Model is a trained model artifact registered with an experiment.
type Model struct {
	ID           string    `json:"modelId"`
	Name         string    `json:"modelName"`
	Version      int       `json:"modelVersion"`
	Labels       string    `json:"modelLabels"`
	Location     string    `json:"uri"`
	ExperimentID string    `json:"experimentId"`
	Created      time.Time `json:"created"`

	experiment *Experiment
}

// ModelOptions describe a model to register. Exactly one of File (a
// local file, which gets uploaded) and Location (a path the server
// can already read, e.g. a previous upload or an s3:// URI) must be
// given.
type ModelOptions struct {
	File     string
	Location string
	Name     string
	Version  int
	Labels   []string
}

func (opts *ModelOptions) location(ctx context.Context, c *Client) (string, error) {
	switch {
	case opts.File != "" && opts.Location != "":
		return "", errors.New("only one of File and Location may be given")
	case opts.Location != "":
		return opts.Location, nil
	case opts.File != "":
		return c.UploadFile(ctx, opts.File)
	default:
		return "", errors.New("one of File and Location must be given")
	}
}

// NewModel registers a model with exp, uploading opts.File first if
// given. Name defaults to the file's base name and Version to 1.
func NewModel(ctx context.Context, exp *Experiment, opts ModelOptions) (*Model, error) {
	c := exp.workspace.client
	loc, err := opts.location(ctx, c)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(loc)
	}
	version := opts.Version
	if version == 0 {
		version = 1
	}
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return nil, err
	}
	req := Model{
		Name:         name,
		Version:      version,
		Labels:       strings.Join(opts.Labels, ","),
		Location:     loc,
		ExperimentID: exp.ID,
		Created:      time.Now().UTC(),
	}
	var m Model
	err = c.RequestAndDecodeContext(ctx, &m, EndpointModelInstanceCreate, req, "server", server)
	if err != nil {
		return nil, fmt.Errorf("create model %q: %w", name, err)
	}
	m.experiment = exp
	return &m, nil
}

// GetModelByID looks up a model registered with exp.
func GetModelByID(ctx context.Context, exp *Experiment, id string) (*Model, error) {
	c := exp.workspace.client
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return nil, err
	}
	var m Model
	err = c.RequestAndDecodeContext(ctx, &m, EndpointModelInstanceGet, nil, "server", server, "id", id)
	if err != nil {
		return nil, err
	}
	m.experiment = exp
	return &m, nil
}

// Delete removes the model registration from the server.
func (m *Model) Delete(ctx context.Context) error {
	c := m.experiment.workspace.client
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return err
	}
	return c.RequestAndDecodeContext(ctx, nil, EndpointModelInstanceDelete, nil, "server", server, "id", m.ID)
}

// Deploy deploys the model into dep and returns a service for it. If
// opts.Start is set, the service is started (see Service.Start)
// before Deploy returns.
func (m *Model) Deploy(ctx context.Context, dep *Deployment, opts DeployOptions) (*ModelService, error) {
	md, err := deploy(ctx, dep, importModelRequest{
		Name:        m.Name,
		Scale:       opts.scale(),
		FileURIs:    []string{m.Location},
		ModelType:   "model",
		InputNames:  opts.InputNames,
		OutputNames: opts.OutputNames,
	})
	if err != nil {
		return nil, err
	}
	svc := &ModelService{
		service: newService(dep, md),
		model:   m,
	}
	if opts.Start {
		if err := svc.Start(ctx); err != nil {
			return svc, err
		}
	}
	return svc, nil
}

// DeployOptions control how a model or transform is deployed.
type DeployOptions struct {
	// Number of serving replicas (default 1).
	Scale int
	// Input and output variable names of the model, if the model
	// format needs them.
	InputNames  []string
	OutputNames []string
	// Start the service after deploying it.
	Start bool
}

func (opts DeployOptions) scale() int {
	if opts.Scale < 1 {
		return 1
	}
	return opts.Scale
}

type importModelRequest struct {
	Name          string   `json:"name"`
	Scale         int      `json:"scale"`
	FileURIs      []string `json:"uri"`
	ModelType     string   `json:"modelType"`
	TransformType string   `json:"transformType,omitempty"`
	InputNames    []string `json:"inputNames,omitempty"`
	OutputNames   []string `json:"outputNames,omitempty"`
}

// ModelState is the serving state of a deployed model or transform
// as reported by the server.
type ModelState string

const (
	ModelStateStarting = ModelState("starting")
	ModelStateStarted  = ModelState("started")
	ModelStateStopping = ModelState("stopping")
	ModelStateStopped  = ModelState("stopped")
	ModelStateFailed   = ModelState("failed")
	ModelStateError    = ModelState("error")
)

func (s ModelState) failed() bool {
	return s == ModelStateFailed || s == ModelStateError
}

// ModelDeployment is the server's record of a model or transform
// deployed into a deployment.
type ModelDeployment struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	DeploymentID string     `json:"deploymentId"`
	ModelType    string     `json:"modelType"`
	Scale        int        `json:"scale"`
	State        ModelState `json:"state"`
}

func deploy(ctx context.Context, dep *Deployment, req importModelRequest) (*ModelDeployment, error) {
	var md ModelDeployment
	err := dep.client.RequestAndDecodeContext(ctx, &md, EndpointModelDeploy, req, "deployment", dep.ID)
	if err != nil {
		return nil, fmt.Errorf("deploy %s %q to %q: %w", req.ModelType, req.Name, dep.Name, err)
	}
	return &md, nil
}
