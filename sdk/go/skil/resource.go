// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
)

// Deletable is implemented by every server-side entity the SDK can
// create: workspaces, experiments, models, transforms, deployments
// and compute/storage resources.
type Deletable interface {
	Delete(ctx context.Context) error
}

// ResourceType distinguishes compute resources from storage
// resources.
type ResourceType string

const (
	ResourceTypeCompute = ResourceType("COMPUTE")
	ResourceTypeStorage = ResourceType("STORAGE")
)

// A Resource is an external compute or storage capability (cloud or
// on-premise) registered with SKIL.
type Resource struct {
	ID      string                 `json:"resourceId,omitempty"`
	Name    string                 `json:"resourceName"`
	Type    ResourceType           `json:"type"`
	SubType string                 `json:"subType"`
	Details map[string]interface{} `json:"details"`

	client *Client
}

func newResource(ctx context.Context, c *Client, r Resource) (*Resource, error) {
	var created Resource
	err := c.RequestAndDecodeContext(ctx, &created, EndpointResourceCreate, r)
	if err != nil {
		return nil, fmt.Errorf("create %s resource %q: %w", r.SubType, r.Name, err)
	}
	created.client = c
	return &created, nil
}

// S3Storage registers an AWS S3 bucket.
func S3Storage(ctx context.Context, c *Client, name, bucket, region string) (*Resource, error) {
	return newResource(ctx, c, Resource{
		Name:    name,
		Type:    ResourceTypeStorage,
		SubType: "S3",
		Details: map[string]interface{}{"bucket": bucket, "region": region},
	})
}

// GoogleStorage registers a Google Cloud Storage bucket.
func GoogleStorage(ctx context.Context, c *Client, name, projectID, bucket string) (*Resource, error) {
	return newResource(ctx, c, Resource{
		Name:    name,
		Type:    ResourceTypeStorage,
		SubType: "GoogleStorage",
		Details: map[string]interface{}{"projectId": projectID, "bucketName": bucket},
	})
}

// AzureStorage registers an Azure storage container.
func AzureStorage(ctx context.Context, c *Client, name, container string) (*Resource, error) {
	return newResource(ctx, c, Resource{
		Name:    name,
		Type:    ResourceTypeStorage,
		SubType: "AzureStorage",
		Details: map[string]interface{}{"containerName": container},
	})
}

// HDFSStorage registers an HDFS namenode.
func HDFSStorage(ctx context.Context, c *Client, name, host string, port int) (*Resource, error) {
	return newResource(ctx, c, Resource{
		Name:    name,
		Type:    ResourceTypeStorage,
		SubType: "HDFS",
		Details: map[string]interface{}{"nameNodeHost": host, "nameNodePort": port},
	})
}

// EMRCompute registers an AWS EMR cluster.
func EMRCompute(ctx context.Context, c *Client, name, region, clusterID string) (*Resource, error) {
	return newResource(ctx, c, Resource{
		Name:    name,
		Type:    ResourceTypeCompute,
		SubType: "EMR",
		Details: map[string]interface{}{"region": region, "clusterId": clusterID},
	})
}

// DataProcCompute registers a Google DataProc cluster.
func DataProcCompute(ctx context.Context, c *Client, name, projectID, region, cluster string) (*Resource, error) {
	return newResource(ctx, c, Resource{
		Name:    name,
		Type:    ResourceTypeCompute,
		SubType: "DataProc",
		Details: map[string]interface{}{"projectId": projectID, "region": region, "sparkClusterName": cluster},
	})
}

// GetResourceByID looks up a previously registered resource.
func GetResourceByID(ctx context.Context, c *Client, id string) (*Resource, error) {
	var r Resource
	err := c.RequestAndDecodeContext(ctx, &r, EndpointResourceGet, nil, "id", id)
	if err != nil {
		return nil, err
	}
	r.client = c
	return &r, nil
}

// Delete removes the resource from SKIL. It does nothing if the
// resource was never created.
func (r *Resource) Delete(ctx context.Context) error {
	if r.ID == "" || r.client == nil {
		return nil
	}
	return r.client.RequestAndDecodeContext(ctx, nil, EndpointResourceDelete, nil, "id", r.ID)
}
