// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"git.skymind.io/skil-go.git/lib/cmd"
	"git.skymind.io/skil-go.git/sdk/go/ctxlog"
	"git.skymind.io/skil-go.git/sdk/go/skil"
	"rsc.io/getopt"
)

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Deploy registers a model (or, with -transform, a transform) with an
// experiment and deploys it. With -s3-bucket, a local -file is copied
// to S3 first and registered by its s3:// URI instead of being
// uploaded to the server. S3 credentials come from the usual AWS
// environment variables and shared config files.
func Deploy(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		deployment, workspace, experiment string
		file, location, name, labels      string
		transform                         string
		version, scale                    int
		inputNames, outputNames           string
		start                             bool
		s3Bucket, s3Region, s3Prefix      string
		s3Endpoint                        string
	)
	return apiCommand("", 0, func(flags *getopt.FlagSet) {
		flags.StringVar(&deployment, "deployment", "", "Deployment `id`")
		flags.Alias("d", "deployment")
		experimentFlags(&workspace)(flags)
		flags.StringVar(&experiment, "experiment", "", "Experiment `id`")
		flags.Alias("e", "experiment")
		flags.StringVar(&file, "file", "", "Local model or transform `file` to upload")
		flags.StringVar(&location, "location", "", "Model or transform `URI` the server can already read")
		flags.StringVar(&name, "name", "", "Model `name` (default: base name of the file)")
		flags.IntVar(&version, "version", 0, "Model `version` (default 1)")
		flags.StringVar(&labels, "labels", "", "Comma-separated `labels`")
		flags.StringVar(&transform, "transform", "", "Deploy a transform of this `type` (csv, array, image) instead of a model")
		flags.IntVar(&scale, "scale", 1, "Number of serving `replicas`")
		flags.StringVar(&inputNames, "input-names", "", "Comma-separated model input `names`")
		flags.StringVar(&outputNames, "output-names", "", "Comma-separated model output `names`")
		flags.BoolVar(&start, "start", false, "Start serving and wait until the server reports started")
		flags.StringVar(&s3Bucket, "s3-bucket", "", "Copy -file to this S3 `bucket` instead of uploading it")
		flags.StringVar(&s3Region, "s3-region", "", "AWS `region` of -s3-bucket")
		flags.StringVar(&s3Prefix, "s3-prefix", "", "Key `prefix` for -s3-bucket")
		flags.StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint `URL` to use instead of AWS")
	}, func(ctx context.Context, client *skil.Client, _ []string) (result, error) {
		if err := required(map[string]string{"deployment": deployment, "experiment": experiment}); err != nil {
			return result{}, err
		}
		if s3Bucket != "" {
			if file == "" {
				return result{}, errors.New("-s3-bucket needs -file")
			}
			up, err := skil.NewS3Uploader(ctx, skil.S3Options{
				Bucket:   s3Bucket,
				Region:   s3Region,
				Prefix:   s3Prefix,
				Endpoint: s3Endpoint,
			})
			if err != nil {
				return result{}, err
			}
			location, err = up.Upload(ctx, file)
			if err != nil {
				return result{}, err
			}
			file = ""
		}
		exp, err := getExperiment(ctx, client, workspace, experiment)
		if err != nil {
			return result{}, err
		}
		dep, err := skil.GetDeploymentByID(ctx, client, deployment)
		if err != nil {
			return result{}, err
		}
		opts := skil.DeployOptions{
			Scale:       scale,
			InputNames:  splitList(inputNames),
			OutputNames: splitList(outputNames),
			Start:       start,
		}
		var md *skil.ModelDeployment
		if transform != "" {
			t, err := skil.NewTransform(ctx, exp, skil.TransformOptions{
				File:     file,
				Location: location,
				Name:     name,
				Version:  version,
				Type:     skil.TransformType(transform),
			})
			if err != nil {
				return result{}, err
			}
			svc, err := t.Deploy(ctx, dep, opts)
			if err != nil {
				return result{}, err
			}
			md = svc.(interface{ ModelDeployment() *skil.ModelDeployment }).ModelDeployment()
		} else {
			m, err := skil.NewModel(ctx, exp, skil.ModelOptions{
				File:     file,
				Location: location,
				Name:     name,
				Version:  version,
				Labels:   splitList(labels),
			})
			if err != nil {
				return result{}, err
			}
			svc, err := m.Deploy(ctx, dep, opts)
			if err != nil {
				return result{}, err
			}
			md = svc.ModelDeployment()
		}
		return result{md.ID, md}, nil
	})(prog, args, stdin, stdout, stderr)
}

// lifecycle returns a subcommand that attaches to an already deployed
// model or transform and runs fn on it.
func lifecycle(fn func(ctx context.Context, svc *skil.ModelService) error) cmd.RunFunc {
	return func(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
		var deployment string
		return apiCommand("model-deployment-id", 1, func(flags *getopt.FlagSet) {
			flags.StringVar(&deployment, "deployment", "", "Deployment `id`")
			flags.Alias("d", "deployment")
		}, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
			svc, err := attach(ctx, client, deployment, args[0])
			if err != nil {
				return result{}, err
			}
			md := *svc.ModelDeployment()
			if err := fn(ctx, svc); err != nil {
				return result{}, err
			}
			if cur := svc.ModelDeployment(); cur != nil {
				md = *cur
			}
			return result{md.ID, md}, nil
		})(prog, args, stdin, stdout, stderr)
	}
}

// attach returns a service for model deployment id in deployment.
// The service has no registered Model, so version-less calls use
// skil.DefaultVersion.
func attach(ctx context.Context, client *skil.Client, deployment, id string) (*skil.ModelService, error) {
	dep, md, err := lookupModelDeployment(ctx, client, deployment, id)
	if err != nil {
		return nil, err
	}
	return skil.NewModelService(dep, nil, md), nil
}

func lookupModelDeployment(ctx context.Context, client *skil.Client, deployment, id string) (*skil.Deployment, *skil.ModelDeployment, error) {
	if err := required(map[string]string{"deployment": deployment}); err != nil {
		return nil, nil, err
	}
	dep, err := skil.GetDeploymentByID(ctx, client, deployment)
	if err != nil {
		return nil, nil, err
	}
	md, err := skil.GetModelDeployment(ctx, dep, id)
	if err != nil {
		return nil, nil, err
	}
	ctxlog.FromContext(ctx).WithField("Deployment", dep.Name).WithField("Model", md.Name).Debugf("model deployment is %s", md.State)
	return dep, md, nil
}

var (
	// Start starts serving a deployed model or transform and waits
	// for the server to report it started.
	Start = lifecycle(func(ctx context.Context, svc *skil.ModelService) error { return svc.Start(ctx) })
	// Stop stops serving and waits for the server to report it
	// stopped.
	Stop = lifecycle(func(ctx context.Context, svc *skil.ModelService) error { return svc.Stop(ctx) })
	// Undeploy removes a model or transform from its deployment.
	Undeploy = lifecycle(func(ctx context.Context, svc *skil.ModelService) error { return svc.Undeploy(ctx) })
)
