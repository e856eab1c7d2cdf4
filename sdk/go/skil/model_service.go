// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// DefaultVersion is the version name used by prediction calls when
// none is given.
const DefaultVersion = "default"

// ModelService is a deployed model.
type ModelService struct {
	*service
	model *Model
}

// NewModelService returns a service for a model that is already
// deployed, e.g. one found with GetModelDeployment. md may be nil, in
// which case every call returns ErrNotDeployed.
func NewModelService(dep *Deployment, m *Model, md *ModelDeployment) *ModelService {
	return &ModelService{service: newService(dep, md), model: m}
}

// GetModelDeployment looks up a model or transform deployed in dep.
func GetModelDeployment(ctx context.Context, dep *Deployment, id string) (*ModelDeployment, error) {
	var md ModelDeployment
	err := dep.client.RequestAndDecodeContext(ctx, &md, EndpointModelGet, nil, "deployment", dep.ID, "model", id)
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// Model returns the registered model this service serves, or nil if
// the service was built from a bare ModelDeployment.
func (s *ModelService) Model() *Model {
	return s.model
}

// Prediction holds model outputs in the order the server returned
// them.
type Prediction []*NDArray

// Single returns the only output of a single-output model.
func (p Prediction) Single() (*NDArray, error) {
	if len(p) != 1 {
		return nil, fmt.Errorf("prediction has %d outputs, want 1", len(p))
	}
	return p[0], nil
}

type multiPredictRequest struct {
	ID                 string     `json:"id"`
	NeedsPreProcessing bool       `json:"needsPreProcessing"`
	Inputs             []*NDArray `json:"inputs"`
}

type multiPredictResponse struct {
	ID      string     `json:"id"`
	Outputs []*NDArray `json:"outputs"`
}

// Predict sends a batch of inputs (one array per model input, each
// with the batch as its first dimension) and returns the outputs.
// An empty version means DefaultVersion.
func (s *ModelService) Predict(ctx context.Context, version string, inputs ...*NDArray) (Prediction, error) {
	if err := s.deployed(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errors.New("no inputs given")
	}
	if version == "" {
		version = DefaultVersion
	}
	var resp multiPredictResponse
	err := s.client.RequestAndDecodeContext(ctx, &resp, EndpointMultiPredict,
		multiPredictRequest{ID: uuid.NewString(), Inputs: inputs},
		"deployment", s.deployment.endpointName(), "model", s.Name(), "version", version)
	if err != nil {
		return nil, err
	}
	if len(resp.Outputs) == 0 {
		return nil, errors.New("server returned no outputs")
	}
	return Prediction(resp.Outputs), nil
}

// PredictSingle predicts for one example: each input gets a leading
// batch dimension of 1, and the first output is returned.
func (s *ModelService) PredictSingle(ctx context.Context, version string, inputs ...*NDArray) (*NDArray, error) {
	batched := make([]*NDArray, len(inputs))
	for i, in := range inputs {
		batched[i] = in.ExpandDims(0)
	}
	p, err := s.Predict(ctx, version, batched...)
	if err != nil {
		return nil, err
	}
	return p[0], nil
}

// DetectOptions control an object detection call.
type DetectOptions struct {
	// Only objects with at least this confidence are returned
	// (default 0.5).
	Threshold float64
	// Whether the server should pre-process the image.
	NeedsPreprocessing bool
	// Version segment of the endpoint URL. Defaults to "v" followed
	// by the model's version number.
	Version string
	// Directory for the temporary JPEG (default os.TempDir()).
	TempDir string
	// Version of the transform stage, when detecting through a
	// Pipeline (default DefaultVersion).
	TransformVersion string
}

// DetectionResult is the server's answer to a detection call.
type DetectionResult struct {
	ID          string           `json:"id"`
	ImageID     string           `json:"imageId"`
	ImageName   string           `json:"imageName"`
	ImageWidth  int              `json:"imageWidth"`
	ImageHeight int              `json:"imageHeight"`
	Objects     []DetectedObject `json:"objects"`
}

// DetectedObject is one bounding box with its candidate labels.
type DetectedObject struct {
	CenterX               float64   `json:"centerX"`
	CenterY               float64   `json:"centerY"`
	Width                 float64   `json:"width"`
	Height                float64   `json:"height"`
	PredictedClassNumbers []int     `json:"predictedClassNumbers"`
	PredictedClasses      []string  `json:"predictedClasses"`
	Confidences           []float64 `json:"confidences"`
}

// Label returns the most confident label and its confidence.
func (o DetectedObject) Label() (string, float64) {
	best := -1
	for i, conf := range o.Confidences {
		if i < len(o.PredictedClasses) && (best < 0 || conf > o.Confidences[best]) {
			best = i
		}
	}
	if best < 0 {
		return "", 0
	}
	return o.PredictedClasses[best], o.Confidences[best]
}

// DetectObjects runs an object detection model (YOLO, SSD, ...) on
// img. The image is written to a temporary JPEG file, which is
// removed before DetectObjects returns, whether or not the call
// succeeded.
func (s *ModelService) DetectObjects(ctx context.Context, img image.Image, opts DetectOptions) (*DetectionResult, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if err := s.deployed(); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(opts.TempDir, "skil-detect-*.jpg")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return nil, err
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	id := s.md.ID
	version := opts.Version
	if s.model != nil {
		id = s.model.ID
		if version == "" {
			version = "v" + strconv.Itoa(s.model.Version)
		}
	}
	if version == "" {
		version = DefaultVersion
	}
	fields := map[string]string{
		"id":                  id,
		"needs_preprocessing": strconv.FormatBool(opts.NeedsPreprocessing),
		"threshold":           strconv.FormatFloat(threshold, 'f', -1, 64),
	}
	var result DetectionResult
	err = s.client.UploadAndDecodeContext(ctx, &result, EndpointDetectObjects, fields,
		[]FormFile{{Field: "file", Name: filepath.Base(tmp.Name()), ContentType: "image/jpeg", Body: tmp}},
		"deployment", s.deployment.endpointName(), "model", s.Name(), "version", version)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
