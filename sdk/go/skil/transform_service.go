// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"errors"
	"fmt"
)

// ArrayTransformer is a deployed transform whose output can feed a
// model: it turns a batch (or a single example) into an NDArray.
type ArrayTransformer interface {
	Service
	// BatchToArray transforms a batch. The result's first
	// dimension is the batch.
	BatchToArray(ctx context.Context, version string, in Input) (*NDArray, error)
	// SingleToArray transforms one example. The result has no
	// batch dimension.
	SingleToArray(ctx context.Context, version string, in Input) (*NDArray, error)
}

var (
	_ ArrayTransformer = (*TransformArrayService)(nil)
	_ ArrayTransformer = (*TransformImageService)(nil)
	_ Service          = (*TransformCSVService)(nil)
)

func defaultVersion(v string) string {
	if v == "" {
		return DefaultVersion
	}
	return v
}

func (s *service) transformVars(version string) []string {
	return []string{"deployment", s.deployment.endpointName(), "transform", s.Name(), "version", defaultVersion(version)}
}

// TransformCSVService is a deployed CSV-to-CSV transform.
type TransformCSVService struct {
	*service
}

// Predict transforms a batch of CSV records.
func (s *TransformCSVService) Predict(ctx context.Context, version string, batch CSVBatch) (CSVBatch, error) {
	if err := s.deployed(); err != nil {
		return nil, err
	}
	var out CSVBatch
	err := s.client.RequestAndDecodeContext(ctx, &out, EndpointTransformCSV, batch, s.transformVars(version)...)
	return out, err
}

// PredictSingle transforms one CSV record.
func (s *TransformCSVService) PredictSingle(ctx context.Context, version string, rec CSVRecord) (CSVRecord, error) {
	if err := s.deployed(); err != nil {
		return nil, err
	}
	var out CSVRecord
	err := s.client.RequestAndDecodeContext(ctx, &out, EndpointTransformCSVIncremental, rec, s.transformVars(version)...)
	return out, err
}

// TransformArrayService is a deployed CSV-to-array transform.
type TransformArrayService struct {
	*service
}

// Predict transforms a batch of CSV records into an array with one
// row per record.
func (s *TransformArrayService) Predict(ctx context.Context, version string, batch CSVBatch) (*NDArray, error) {
	if err := s.deployed(); err != nil {
		return nil, err
	}
	var out NDArray
	err := s.client.RequestAndDecodeContext(ctx, &out, EndpointTransformArray, batch, s.transformVars(version)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictSingle transforms one CSV record into an array without a
// batch dimension.
func (s *TransformArrayService) PredictSingle(ctx context.Context, version string, rec CSVRecord) (*NDArray, error) {
	if err := s.deployed(); err != nil {
		return nil, err
	}
	var out NDArray
	err := s.client.RequestAndDecodeContext(ctx, &out, EndpointTransformArrayIncremental, rec, s.transformVars(version)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TransformArrayService) BatchToArray(ctx context.Context, version string, in Input) (*NDArray, error) {
	switch in := in.(type) {
	case CSVBatch:
		return s.Predict(ctx, version, in)
	case CSVRecord:
		return s.Predict(ctx, version, CSVBatch{in})
	default:
		return nil, fmt.Errorf("%w: array transform needs CSV records, got %T", ErrUnsupportedInput, in)
	}
}

func (s *TransformArrayService) SingleToArray(ctx context.Context, version string, in Input) (*NDArray, error) {
	rec, ok := in.(CSVRecord)
	if !ok {
		return nil, fmt.Errorf("%w: array transform needs a CSV record, got %T", ErrUnsupportedInput, in)
	}
	return s.PredictSingle(ctx, version, rec)
}

// TransformImageService is a deployed image-to-array transform.
type TransformImageService struct {
	*service
}

// Predict transforms a batch of encoded images.
func (s *TransformImageService) Predict(ctx context.Context, version string, imgs []Image) (*NDArray, error) {
	if err := s.deployed(); err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, errors.New("no images given")
	}
	files := make([]FormFile, len(imgs))
	for i, img := range imgs {
		files[i] = img.formFile("files")
	}
	var out NDArray
	err := s.client.UploadAndDecodeContext(ctx, &out, EndpointTransformImage, nil, files, s.transformVars(version)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictSingle transforms one encoded image.
func (s *TransformImageService) PredictSingle(ctx context.Context, version string, img Image) (*NDArray, error) {
	if err := s.deployed(); err != nil {
		return nil, err
	}
	var out NDArray
	err := s.client.UploadAndDecodeContext(ctx, &out, EndpointTransformImageIncremental, nil,
		[]FormFile{img.formFile("file")}, s.transformVars(version)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TransformImageService) BatchToArray(ctx context.Context, version string, in Input) (*NDArray, error) {
	switch in := in.(type) {
	case Images:
		return s.Predict(ctx, version, in)
	case Image:
		return s.Predict(ctx, version, []Image{in})
	default:
		return nil, fmt.Errorf("%w: image transform needs images, got %T", ErrUnsupportedInput, in)
	}
}

func (s *TransformImageService) SingleToArray(ctx context.Context, version string, in Input) (*NDArray, error) {
	img, ok := in.(Image)
	if !ok {
		return nil, fmt.Errorf("%w: image transform needs one image, got %T", ErrUnsupportedInput, in)
	}
	return s.PredictSingle(ctx, version, img)
}
