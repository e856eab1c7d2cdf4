// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"
)

// Pipeline chains an optional transform stage and a model stage:
// inputs go through the transform, and its output feeds the model.
// Errors from either stage are returned as is.
type Pipeline struct {
	Model     *ModelService
	Transform ArrayTransformer
}

var _ Service = (*Pipeline)(nil)

// NewPipeline deploys model and (if non-nil) transform into dep, and
// starts both if opts.Start is set. The transform must be of type
// TransformTypeArray or TransformTypeImage.
func NewPipeline(ctx context.Context, dep *Deployment, model *Model, transform *Transform, opts DeployOptions) (*Pipeline, error) {
	start := opts.Start
	opts.Start = false
	p := &Pipeline{}
	var err error
	p.Model, err = model.Deploy(ctx, dep, opts)
	if err != nil {
		return nil, err
	}
	if transform != nil {
		svc, err := transform.Deploy(ctx, dep, DeployOptions{Scale: opts.Scale})
		if err != nil {
			return nil, err
		}
		at, ok := svc.(ArrayTransformer)
		if !ok {
			return nil, fmt.Errorf("transform %q of type %q cannot feed a model", transform.Name, transform.Type)
		}
		p.Transform = at
	}
	if start {
		if err := p.Start(ctx); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Start starts both stages concurrently.
func (p *Pipeline) Start(ctx context.Context) error {
	return p.each(ctx, Service.Start)
}

// Stop stops both stages concurrently.
func (p *Pipeline) Stop(ctx context.Context) error {
	return p.each(ctx, Service.Stop)
}

func (p *Pipeline) each(ctx context.Context, fn func(Service, context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fn(p.Model, ctx) })
	if p.Transform != nil {
		g.Go(func() error { return fn(p.Transform, ctx) })
	}
	return g.Wait()
}

// Predict runs a batch through the pipeline. Without a transform
// stage, in must be Arrays.
func (p *Pipeline) Predict(ctx context.Context, version string, in Input) (Prediction, error) {
	if p.Transform == nil {
		arrays, ok := in.(Arrays)
		if !ok {
			return nil, fmt.Errorf("%w: pipeline without transform needs Arrays, got %T", ErrUnsupportedInput, in)
		}
		return p.Model.Predict(ctx, version, arrays...)
	}
	arr, err := p.Transform.BatchToArray(ctx, version, in)
	if err != nil {
		return nil, err
	}
	return p.Model.Predict(ctx, version, arr)
}

// PredictSingle runs one example through the pipeline.
func (p *Pipeline) PredictSingle(ctx context.Context, version string, in Input) (*NDArray, error) {
	if p.Transform == nil {
		arrays, ok := in.(Arrays)
		if !ok {
			return nil, fmt.Errorf("%w: pipeline without transform needs Arrays, got %T", ErrUnsupportedInput, in)
		}
		return p.Model.PredictSingle(ctx, version, arrays...)
	}
	arr, err := p.Transform.SingleToArray(ctx, version, in)
	if err != nil {
		return nil, err
	}
	return p.Model.PredictSingle(ctx, version, arr)
}

// DetectObjects runs img through the transform's single-example path
// (if there is a transform), converts the resulting array back to an
// image, and runs the model's object detection on it.
func (p *Pipeline) DetectObjects(ctx context.Context, img image.Image, opts DetectOptions) (*DetectionResult, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if p.Transform != nil {
		enc, err := EncodeJPEG("image.jpg", img)
		if err != nil {
			return nil, err
		}
		arr, err := p.Transform.SingleToArray(ctx, opts.TransformVersion, enc)
		if err != nil {
			return nil, err
		}
		img, err = arr.Image()
		if err != nil {
			return nil, err
		}
	}
	return p.Model.DetectObjects(ctx, img, opts)
}
