// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"git.skymind.io/skil-go.git/lib/cmd"
	"git.skymind.io/skil-go.git/sdk/go/skil"
	"rsc.io/getopt"
)

var (
	Workspace = cmd.Multi(map[string]cmd.RunFunc{
		"create": workspaceCreate,
		"get":    workspaceGet,
		"delete": workspaceDelete,
	})
	Experiment = cmd.Multi(map[string]cmd.RunFunc{
		"create": experimentCreate,
		"get":    experimentGet,
		"delete": experimentDelete,
	})
	Deployment = cmd.Multi(map[string]cmd.RunFunc{
		"create": deploymentCreate,
		"get":    deploymentGet,
		"list":   deploymentList,
		"delete": deploymentDelete,
	})
	Resource = cmd.Multi(map[string]cmd.RunFunc{
		"create": resourceCreate,
		"get":    resourceGet,
		"delete": resourceDelete,
	})
)

func workspaceCreate(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var name, labels string
	return apiCommand("", 0, func(flags *getopt.FlagSet) {
		flags.StringVar(&name, "name", "", "Workspace `name`")
		flags.StringVar(&labels, "labels", "", "Comma-separated `labels`")
	}, func(ctx context.Context, client *skil.Client, _ []string) (result, error) {
		if err := required(map[string]string{"name": name}); err != nil {
			return result{}, err
		}
		ws, err := skil.NewWorkSpace(ctx, client, name, labels)
		if err != nil {
			return result{}, err
		}
		return result{ws.ID, ws}, nil
	})(prog, args, stdin, stdout, stderr)
}

func workspaceGet(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return apiCommand("workspace-id", 1, nil, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		ws, err := skil.GetWorkSpaceByID(ctx, client, args[0])
		if err != nil {
			return result{}, err
		}
		return result{ws.ID, ws}, nil
	})(prog, args, stdin, stdout, stderr)
}

func workspaceDelete(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return apiCommand("workspace-id", 1, nil, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		ws, err := skil.GetWorkSpaceByID(ctx, client, args[0])
		if err != nil {
			return result{}, err
		}
		return result{ws.ID, ws}, ws.Delete(ctx)
	})(prog, args, stdin, stdout, stderr)
}

// experimentFlags adds the -workspace flag that every experiment
// subcommand needs.
func experimentFlags(workspace *string) func(*getopt.FlagSet) {
	return func(flags *getopt.FlagSet) {
		flags.StringVar(workspace, "workspace", "", "Workspace `id`")
		flags.Alias("w", "workspace")
	}
}

func getExperiment(ctx context.Context, client *skil.Client, workspace, id string) (*skil.Experiment, error) {
	if err := required(map[string]string{"workspace": workspace}); err != nil {
		return nil, err
	}
	ws, err := skil.GetWorkSpaceByID(ctx, client, workspace)
	if err != nil {
		return nil, err
	}
	return skil.GetExperimentByID(ctx, ws, id)
}

func experimentCreate(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var workspace, name, description string
	return apiCommand("", 0, func(flags *getopt.FlagSet) {
		experimentFlags(&workspace)(flags)
		flags.StringVar(&name, "name", "", "Experiment `name`")
		flags.StringVar(&description, "description", "", "Experiment `description`")
	}, func(ctx context.Context, client *skil.Client, _ []string) (result, error) {
		if err := required(map[string]string{"name": name, "workspace": workspace}); err != nil {
			return result{}, err
		}
		ws, err := skil.GetWorkSpaceByID(ctx, client, workspace)
		if err != nil {
			return result{}, err
		}
		exp, err := skil.NewExperiment(ctx, ws, name, description)
		if err != nil {
			return result{}, err
		}
		return result{exp.ID, exp}, nil
	})(prog, args, stdin, stdout, stderr)
}

func experimentGet(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var workspace string
	return apiCommand("experiment-id", 1, experimentFlags(&workspace), func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		exp, err := getExperiment(ctx, client, workspace, args[0])
		if err != nil {
			return result{}, err
		}
		return result{exp.ID, exp}, nil
	})(prog, args, stdin, stdout, stderr)
}

func experimentDelete(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var workspace string
	return apiCommand("experiment-id", 1, experimentFlags(&workspace), func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		exp, err := getExperiment(ctx, client, workspace, args[0])
		if err != nil {
			return result{}, err
		}
		return result{exp.ID, exp}, exp.Delete(ctx)
	})(prog, args, stdin, stdout, stderr)
}

func deploymentCreate(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var name string
	return apiCommand("", 0, func(flags *getopt.FlagSet) {
		flags.StringVar(&name, "name", "", "Deployment `name`")
	}, func(ctx context.Context, client *skil.Client, _ []string) (result, error) {
		if err := required(map[string]string{"name": name}); err != nil {
			return result{}, err
		}
		dep, err := skil.NewDeployment(ctx, client, name)
		if err != nil {
			return result{}, err
		}
		return result{dep.ID, dep}, nil
	})(prog, args, stdin, stdout, stderr)
}

func deploymentGet(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return apiCommand("deployment-id", 1, nil, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		dep, err := skil.GetDeploymentByID(ctx, client, args[0])
		if err != nil {
			return result{}, err
		}
		return result{dep.ID, dep}, nil
	})(prog, args, stdin, stdout, stderr)
}

func deploymentList(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return apiCommand("", 0, nil, func(ctx context.Context, client *skil.Client, _ []string) (result, error) {
		deps, err := skil.ListDeployments(ctx, client)
		if err != nil {
			return result{}, err
		}
		ids := make([]string, len(deps))
		for i, dep := range deps {
			ids[i] = dep.ID
		}
		return result{strings.Join(ids, "\n"), deps}, nil
	})(prog, args, stdin, stdout, stderr)
}

func deploymentDelete(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return apiCommand("deployment-id", 1, nil, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		dep, err := skil.GetDeploymentByID(ctx, client, args[0])
		if err != nil {
			return result{}, err
		}
		return result{dep.ID, dep}, dep.Delete(ctx)
	})(prog, args, stdin, stdout, stderr)
}

// resourceCreate registers a compute or storage resource. The
// positional argument selects the kind; the flags that kind needs
// are checked before anything is sent.
func resourceCreate(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var name, bucket, region, project, container, host, port, cluster string
	return apiCommand("s3|gcs|azure|hdfs|emr|dataproc", 1, func(flags *getopt.FlagSet) {
		flags.StringVar(&name, "name", "", "Resource `name`")
		flags.StringVar(&bucket, "bucket", "", "Bucket `name` (s3, gcs)")
		flags.StringVar(&region, "region", "", "Cloud `region` (s3, emr, dataproc)")
		flags.StringVar(&project, "project", "", "Google Cloud project `id` (gcs, dataproc)")
		flags.StringVar(&container, "container", "", "Azure container `name` (azure)")
		flags.StringVar(&host, "host", "", "Name node `host` (hdfs)")
		flags.StringVar(&port, "port", "", "Name node `port` (hdfs)")
		flags.StringVar(&cluster, "cluster", "", "Cluster `id` or name (emr, dataproc)")
	}, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		var r *skil.Resource
		var err error
		switch kind := args[0]; kind {
		case "s3":
			if err = required(map[string]string{"name": name, "bucket": bucket, "region": region}); err == nil {
				r, err = skil.S3Storage(ctx, client, name, bucket, region)
			}
		case "gcs":
			if err = required(map[string]string{"name": name, "bucket": bucket, "project": project}); err == nil {
				r, err = skil.GoogleStorage(ctx, client, name, project, bucket)
			}
		case "azure":
			if err = required(map[string]string{"name": name, "container": container}); err == nil {
				r, err = skil.AzureStorage(ctx, client, name, container)
			}
		case "hdfs":
			if err = required(map[string]string{"name": name, "host": host, "port": port}); err == nil {
				var n int
				n, err = strconv.Atoi(port)
				if err != nil {
					return result{}, fmt.Errorf("invalid -port %q: %w", port, err)
				}
				r, err = skil.HDFSStorage(ctx, client, name, host, n)
			}
		case "emr":
			if err = required(map[string]string{"name": name, "region": region, "cluster": cluster}); err == nil {
				r, err = skil.EMRCompute(ctx, client, name, region, cluster)
			}
		case "dataproc":
			if err = required(map[string]string{"name": name, "project": project, "region": region, "cluster": cluster}); err == nil {
				r, err = skil.DataProcCompute(ctx, client, name, project, region, cluster)
			}
		default:
			return result{}, fmt.Errorf("unknown resource kind %q", kind)
		}
		if err != nil {
			return result{}, err
		}
		return result{r.ID, r}, nil
	})(prog, args, stdin, stdout, stderr)
}

func resourceGet(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return apiCommand("resource-id", 1, nil, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		r, err := skil.GetResourceByID(ctx, client, args[0])
		if err != nil {
			return result{}, err
		}
		return result{r.ID, r}, nil
	})(prog, args, stdin, stdout, stderr)
}

func resourceDelete(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return apiCommand("resource-id", 1, nil, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		r, err := skil.GetResourceByID(ctx, client, args[0])
		if err != nil {
			return result{}, err
		}
		return result{r.ID, r}, r.Delete(ctx)
	})(prog, args, stdin, stdout, stderr)
}
