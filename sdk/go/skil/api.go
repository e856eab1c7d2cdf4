// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"net/url"
	"strings"
)

// APIEndpoint is a REST route on the SKIL server. Path segments of
// the form {name} are filled in by Expand.
type APIEndpoint struct {
	Method string
	Path   string
}

var (
	EndpointLogin       = APIEndpoint{"POST", "login"}
	EndpointServiceList = APIEndpoint{"GET", "services"}
	EndpointFileUpload  = APIEndpoint{"POST", "api/upload/model"}

	EndpointWorkSpaceCreate = APIEndpoint{"POST", "rpc/{server}/modelhistory/workspaces"}
	EndpointWorkSpaceGet    = APIEndpoint{"GET", "rpc/{server}/modelhistory/workspaces/{id}"}
	EndpointWorkSpaceDelete = APIEndpoint{"DELETE", "rpc/{server}/modelhistory/workspaces/{id}"}

	EndpointExperimentCreate = APIEndpoint{"POST", "rpc/{server}/experiments"}
	EndpointExperimentGet    = APIEndpoint{"GET", "rpc/{server}/experiments/{id}"}
	EndpointExperimentDelete = APIEndpoint{"DELETE", "rpc/{server}/experiments/{id}"}

	EndpointModelInstanceCreate = APIEndpoint{"POST", "rpc/{server}/models"}
	EndpointModelInstanceGet    = APIEndpoint{"GET", "rpc/{server}/models/{id}"}
	EndpointModelInstanceDelete = APIEndpoint{"DELETE", "rpc/{server}/models/{id}"}

	EndpointDeploymentCreate = APIEndpoint{"POST", "deployment"}
	EndpointDeploymentGet    = APIEndpoint{"GET", "deployment/{id}"}
	EndpointDeploymentList   = APIEndpoint{"GET", "deployments"}
	EndpointDeploymentDelete = APIEndpoint{"DELETE", "deployment/{id}"}

	EndpointModelDeploy      = APIEndpoint{"POST", "deployment/{deployment}/model"}
	EndpointModelGet         = APIEndpoint{"GET", "deployment/{deployment}/model/{model}"}
	EndpointModelStateChange = APIEndpoint{"POST", "deployment/{deployment}/model/{model}/state"}
	EndpointModelUndeploy    = APIEndpoint{"DELETE", "deployment/{deployment}/model/{model}"}

	EndpointMultiPredict  = APIEndpoint{"POST", "endpoints/{deployment}/model/{model}/{version}/multipredict"}
	EndpointDetectObjects = APIEndpoint{"POST", "endpoints/{deployment}/model/{model}/{version}/detectobjects"}

	EndpointTransformCSV              = APIEndpoint{"POST", "endpoints/{deployment}/datavec/{transform}/{version}/transform"}
	EndpointTransformCSVIncremental   = APIEndpoint{"POST", "endpoints/{deployment}/datavec/{transform}/{version}/transformincremental"}
	EndpointTransformArray            = APIEndpoint{"POST", "endpoints/{deployment}/datavec/{transform}/{version}/transformarray"}
	EndpointTransformArrayIncremental = APIEndpoint{"POST", "endpoints/{deployment}/datavec/{transform}/{version}/transformincrementalarray"}
	EndpointTransformImage            = APIEndpoint{"POST", "endpoints/{deployment}/datavec/{transform}/{version}/transformimage"}
	EndpointTransformImageIncremental = APIEndpoint{"POST", "endpoints/{deployment}/datavec/{transform}/{version}/transformincrementalimage"}

	EndpointResourceCreate = APIEndpoint{"POST", "resources"}
	EndpointResourceGet    = APIEndpoint{"GET", "resources/{id}"}
	EndpointResourceDelete = APIEndpoint{"DELETE", "resources/{id}"}
)

// Expand returns the endpoint path with each {name} placeholder
// replaced by the path-escaped value following name in vars.
//
//	EndpointDeploymentGet.Expand("id", "3") == "deployment/3"
func (ep APIEndpoint) Expand(vars ...string) string {
	path := ep.Path
	for i := 0; i+1 < len(vars); i += 2 {
		path = strings.Replace(path, "{"+vars[i]+"}", url.PathEscape(vars[i+1]), -1)
	}
	return path
}

// String returns a label suitable for logs and metrics, e.g. "POST
// deployment/{id}".
func (ep APIEndpoint) String() string {
	return ep.Method + " " + ep.Path
}
