// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// TransformType selects the payload a deployed transform accepts and
// produces.
type TransformType string

const (
	// CSV records in, CSV records out.
	TransformTypeCSV = TransformType("csv")
	// CSV records in, NDArray out.
	TransformTypeArray = TransformType("array")
	// Image files in, NDArray out.
	TransformTypeImage = TransformType("image")
)

// Transform is a serialized data transform process (an opaque JSON
// document produced by the transform library) registered with an
// experiment.
type Transform struct {
	ID           string        `json:"modelId"`
	Name         string        `json:"modelName"`
	Version      int           `json:"modelVersion"`
	Location     string        `json:"uri"`
	ExperimentID string        `json:"experimentId"`
	Type         TransformType `json:"transformType"`
	Created      time.Time     `json:"created"`

	experiment *Experiment
}

// TransformOptions describe a transform to register. File and
// Location behave as in ModelOptions. Type defaults to
// TransformTypeCSV.
type TransformOptions struct {
	File     string
	Location string
	Name     string
	Version  int
	Type     TransformType
}

// NewTransform registers a transform with exp.
func NewTransform(ctx context.Context, exp *Experiment, opts TransformOptions) (*Transform, error) {
	c := exp.workspace.client
	mo := ModelOptions{File: opts.File, Location: opts.Location}
	loc, err := mo.location(ctx, c)
	if err != nil {
		return nil, err
	}
	tt := opts.Type
	switch tt {
	case "":
		tt = TransformTypeCSV
	case TransformTypeCSV, TransformTypeArray, TransformTypeImage:
	default:
		return nil, fmt.Errorf("unknown transform type %q", tt)
	}
	req := Transform{
		Name:         opts.Name,
		Version:      opts.Version,
		Location:     loc,
		ExperimentID: exp.ID,
		Type:         tt,
		Created:      time.Now().UTC(),
	}
	if req.Name == "" {
		req.Name = filepath.Base(loc)
	}
	if req.Version == 0 {
		req.Version = 1
	}
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return nil, err
	}
	var t Transform
	err = c.RequestAndDecodeContext(ctx, &t, EndpointModelInstanceCreate, req, "server", server)
	if err != nil {
		return nil, fmt.Errorf("create transform %q: %w", req.Name, err)
	}
	if t.Type == "" {
		t.Type = tt
	}
	t.experiment = exp
	return &t, nil
}

// Delete removes the transform registration from the server.
func (t *Transform) Delete(ctx context.Context) error {
	c := t.experiment.workspace.client
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return err
	}
	return c.RequestAndDecodeContext(ctx, nil, EndpointModelInstanceDelete, nil, "server", server, "id", t.ID)
}

// Deploy deploys the transform into dep. The returned Service is a
// *TransformCSVService, *TransformArrayService or
// *TransformImageService according to t.Type.
func (t *Transform) Deploy(ctx context.Context, dep *Deployment, opts DeployOptions) (Service, error) {
	md, err := deploy(ctx, dep, importModelRequest{
		Name:          t.Name,
		Scale:         opts.scale(),
		FileURIs:      []string{t.Location},
		ModelType:     "transform",
		TransformType: string(t.Type),
	})
	if err != nil {
		return nil, err
	}
	svc := NewTransformService(dep, t.Type, md)
	if opts.Start {
		if err := svc.Start(ctx); err != nil {
			return svc, err
		}
	}
	return svc, nil
}

// NewTransformService returns a service for a transform of type tt
// that is already deployed as md.
func NewTransformService(dep *Deployment, tt TransformType, md *ModelDeployment) Service {
	base := newService(dep, md)
	switch tt {
	case TransformTypeArray:
		return &TransformArrayService{service: base}
	case TransformTypeImage:
		return &TransformImageService{service: base}
	default:
		return &TransformCSVService{service: base}
	}
}
