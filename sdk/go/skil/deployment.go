// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
)

// Deployment is a serving target. Models and transforms are deployed
// into a deployment, and their prediction endpoints are addressed by
// the deployment's slug.
type Deployment struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"deploymentSlug"`
	Status string `json:"status"`

	client *Client
}

type createDeploymentRequest struct {
	Name string `json:"name"`
}

// NewDeployment creates a deployment on the server.
func NewDeployment(ctx context.Context, c *Client, name string) (*Deployment, error) {
	var dep Deployment
	err := c.RequestAndDecodeContext(ctx, &dep, EndpointDeploymentCreate, createDeploymentRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("create deployment %q: %w", name, err)
	}
	dep.client = c
	return &dep, nil
}

// GetDeploymentByID looks up an existing deployment.
func GetDeploymentByID(ctx context.Context, c *Client, id string) (*Deployment, error) {
	var dep Deployment
	err := c.RequestAndDecodeContext(ctx, &dep, EndpointDeploymentGet, nil, "id", id)
	if err != nil {
		return nil, err
	}
	dep.client = c
	return &dep, nil
}

// ListDeployments returns all deployments on the server.
func ListDeployments(ctx context.Context, c *Client) ([]*Deployment, error) {
	var deps []*Deployment
	err := c.RequestAndDecodeContext(ctx, &deps, EndpointDeploymentList, nil)
	if err != nil {
		return nil, err
	}
	for _, dep := range deps {
		dep.client = c
	}
	return deps, nil
}

// endpointName is the name used in prediction URLs.
func (dep *Deployment) endpointName() string {
	if dep.Slug != "" {
		return dep.Slug
	}
	return dep.Name
}

// Delete removes the deployment from the server.
func (dep *Deployment) Delete(ctx context.Context) error {
	return dep.client.RequestAndDecodeContext(ctx, nil, EndpointDeploymentDelete, nil, "id", dep.ID)
}
