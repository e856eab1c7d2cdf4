// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package skil is a client library for the SKIL model serving
// platform.
//
// A caller builds a resource graph (workspace, experiment, model or
// transform, deployment), deploys it to obtain a Service, starts the
// service, and then sends predictions to it:
//
//	client := skil.NewClientFromEnv()
//	ws, err := skil.NewWorkSpace(ctx, client, "iris", "")
//	exp, err := skil.NewExperiment(ctx, ws, "iris-exp", "")
//	model, err := skil.NewModel(ctx, exp, skil.ModelOptions{File: "iris_model.h5"})
//	dep, err := skil.NewDeployment(ctx, client, "iris-dep")
//	svc, err := model.Deploy(ctx, dep, skil.DeployOptions{Start: true})
//	out, err := svc.Predict(ctx, "", features)
//
// All calls are synchronous. Start and Stop block until the server
// reports the requested state, and are bounded by the context and
// the client's PollConfig.
package skil
