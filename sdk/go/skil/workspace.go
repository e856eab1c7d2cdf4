// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
)

// WorkSpace is a SKIL workspace (a "model history" on the server):
// the top-level container for experiments and models.
type WorkSpace struct {
	ID     string `json:"modelHistoryId"`
	Name   string `json:"modelName"`
	Labels string `json:"modelLabels"`

	client *Client
}

type addModelHistoryRequest struct {
	Name   string `json:"modelName"`
	Labels string `json:"modelLabels"`
}

// NewWorkSpace creates a workspace on the server.
func NewWorkSpace(ctx context.Context, c *Client, name, labels string) (*WorkSpace, error) {
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return nil, err
	}
	var ws WorkSpace
	err = c.RequestAndDecodeContext(ctx, &ws, EndpointWorkSpaceCreate,
		addModelHistoryRequest{Name: name, Labels: labels},
		"server", server)
	if err != nil {
		return nil, fmt.Errorf("create workspace %q: %w", name, err)
	}
	ws.client = c
	return &ws, nil
}

// GetWorkSpaceByID looks up an existing workspace.
func GetWorkSpaceByID(ctx context.Context, c *Client, id string) (*WorkSpace, error) {
	server, err := c.ModelHistoryServerID(ctx)
	if err != nil {
		return nil, err
	}
	var ws WorkSpace
	err = c.RequestAndDecodeContext(ctx, &ws, EndpointWorkSpaceGet, nil, "server", server, "id", id)
	if err != nil {
		return nil, err
	}
	ws.client = c
	return &ws, nil
}

// Client returns the client the workspace was created or fetched
// with.
func (ws *WorkSpace) Client() *Client {
	return ws.client
}

// Delete removes the workspace from the server.
func (ws *WorkSpace) Delete(ctx context.Context) error {
	server, err := ws.client.ModelHistoryServerID(ctx)
	if err != nil {
		return err
	}
	return ws.client.RequestAndDecodeContext(ctx, nil, EndpointWorkSpaceDelete, nil, "server", server, "id", ws.ID)
}
