// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"git.skymind.io/skil-go.git/sdk/go/skil"
	"github.com/bmatcuk/doublestar/v4"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"rsc.io/getopt"
)

// openInput returns the named file, or stdin if name is "-".
func openInput(name string, stdin io.Reader) (io.ReadCloser, error) {
	if name == "-" {
		if stdin == nil {
			return nil, errors.New("no stdin")
		}
		return io.NopCloser(stdin), nil
	}
	return os.Open(name)
}

// readArrays decodes either a single NDArray or a JSON list of
// NDArrays.
func readArrays(r io.Reader) ([]*skil.NDArray, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	buf = bytes.TrimSpace(buf)
	if len(buf) > 0 && buf[0] == '[' {
		var arrs []*skil.NDArray
		if err := json.Unmarshal(buf, &arrs); err != nil {
			return nil, fmt.Errorf("decoding input arrays: %w", err)
		}
		return arrs, nil
	}
	var arr skil.NDArray
	if err := json.Unmarshal(buf, &arr); err != nil {
		return nil, fmt.Errorf("decoding input array: %w", err)
	}
	return []*skil.NDArray{&arr}, nil
}

// expandGlobs replaces each argument containing glob metacharacters
// (including "**") with the files it matches.
func expandGlobs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			files = append(files, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: no matching files", arg)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Predict sends arrays read from -input (a JSON NDArray, or a list of
// them, one per model input) to a deployed model and prints the
// outputs.
func Predict(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var deployment, model, version, input string
	var single bool
	return apiCommand("", 0, func(flags *getopt.FlagSet) {
		flags.StringVar(&deployment, "deployment", "", "Deployment `id`")
		flags.Alias("d", "deployment")
		flags.StringVar(&model, "model", "", "Model deployment `id`")
		flags.Alias("m", "model")
		flags.StringVar(&version, "version", "", "Endpoint `version` (default \"default\")")
		flags.StringVar(&input, "input", "-", "Input `file` (- for stdin)")
		flags.Alias("i", "input")
		flags.BoolVar(&single, "single", false, "Inputs are single examples without a batch dimension")
	}, func(ctx context.Context, client *skil.Client, _ []string) (result, error) {
		if err := required(map[string]string{"model": model}); err != nil {
			return result{}, err
		}
		f, err := openInput(input, stdin)
		if err != nil {
			return result{}, err
		}
		defer f.Close()
		arrs, err := readArrays(f)
		if err != nil {
			return result{}, err
		}
		svc, err := attach(ctx, client, deployment, model)
		if err != nil {
			return result{}, err
		}
		if single {
			out, err := svc.PredictSingle(ctx, version, arrs...)
			if err != nil {
				return result{}, err
			}
			return result{Obj: out}, nil
		}
		out, err := svc.Predict(ctx, version, arrs...)
		if err != nil {
			return result{}, err
		}
		return result{Obj: out}, nil
	})(prog, args, stdin, stdout, stderr)
}

// Transform runs a deployed transform. CSV and array transforms read
// one record per line from -input; image transforms read the image
// files named as arguments, which may be glob patterns such as
// "photos/**/*.jpg".
func Transform(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var deployment, transform, ttype, version, input, sep string
	var single bool
	return apiCommand("[image-file ...]", -1, func(flags *getopt.FlagSet) {
		flags.StringVar(&deployment, "deployment", "", "Deployment `id`")
		flags.Alias("d", "deployment")
		flags.StringVar(&transform, "transform", "", "Transform deployment `id`")
		flags.Alias("t", "transform")
		flags.StringVar(&ttype, "type", string(skil.TransformTypeCSV), "Transform `type`: csv, array, or image")
		flags.StringVar(&version, "version", "", "Endpoint `version` (default \"default\")")
		flags.StringVar(&input, "input", "-", "CSV input `file` (- for stdin)")
		flags.Alias("i", "input")
		flags.StringVar(&sep, "separator", ",", "CSV field `separator`")
		flags.BoolVar(&single, "single", false, "Transform only the first record or image")
	}, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		if err := required(map[string]string{"transform": transform}); err != nil {
			return result{}, err
		}
		tt := skil.TransformType(ttype)
		var in skil.Input
		switch tt {
		case skil.TransformTypeCSV, skil.TransformTypeArray:
			if len(args) > 0 {
				return result{}, fmt.Errorf("%s transforms take no arguments, use -input", tt)
			}
			f, err := openInput(input, stdin)
			if err != nil {
				return result{}, err
			}
			defer f.Close()
			lines, err := readLines(f)
			if err != nil {
				return result{}, err
			}
			batch := skil.ParseCSVBatch(lines, sep)
			if len(batch) == 0 {
				return result{}, errors.New("no input records")
			}
			if single {
				in = batch[0]
			} else {
				in = batch
			}
		case skil.TransformTypeImage:
			if len(args) == 0 {
				return result{}, errors.New("no image files given")
			}
			files, err := expandGlobs(args)
			if err != nil {
				return result{}, err
			}
			var imgs skil.Images
			for _, fn := range files {
				img, err := skil.ImageFromFile(fn)
				if err != nil {
					return result{}, err
				}
				imgs = append(imgs, img)
			}
			if single {
				in = imgs[0]
			} else {
				in = imgs
			}
		default:
			return result{}, fmt.Errorf("unknown transform type %q", ttype)
		}

		dep, md, err := lookupModelDeployment(ctx, client, deployment, transform)
		if err != nil {
			return result{}, err
		}
		out, err := runTransform(ctx, skil.NewTransformService(dep, tt, md), version, in)
		if err != nil {
			return result{}, err
		}
		return result{Obj: out}, nil
	})(prog, args, stdin, stdout, stderr)
}

func runTransform(ctx context.Context, svc skil.Service, version string, in skil.Input) (interface{}, error) {
	switch svc := svc.(type) {
	case *skil.TransformCSVService:
		switch in := in.(type) {
		case skil.CSVRecord:
			return svc.PredictSingle(ctx, version, in)
		case skil.CSVBatch:
			return svc.Predict(ctx, version, in)
		}
	case skil.ArrayTransformer:
		switch in.(type) {
		case skil.CSVRecord, skil.Image:
			return svc.SingleToArray(ctx, version, in)
		default:
			return svc.BatchToArray(ctx, version, in)
		}
	}
	return nil, skil.ErrUnsupportedInput
}

// Detect runs an object detection model on an image file and prints
// the detected objects.
func Detect(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var deployment, model, version string
	var threshold float64
	var preprocess bool
	return apiCommand("image-file", 1, func(flags *getopt.FlagSet) {
		flags.StringVar(&deployment, "deployment", "", "Deployment `id`")
		flags.Alias("d", "deployment")
		flags.StringVar(&model, "model", "", "Model deployment `id`")
		flags.Alias("m", "model")
		flags.StringVar(&version, "version", "", "Endpoint `version` (default \"default\")")
		flags.Float64Var(&threshold, "threshold", 0.5, "Minimum `confidence` of reported objects")
		flags.BoolVar(&preprocess, "preprocess", false, "Ask the server to pre-process the image")
	}, func(ctx context.Context, client *skil.Client, args []string) (result, error) {
		if err := required(map[string]string{"model": model}); err != nil {
			return result{}, err
		}
		img, err := decodeImageFile(args[0])
		if err != nil {
			return result{}, err
		}
		svc, err := attach(ctx, client, deployment, model)
		if err != nil {
			return result{}, err
		}
		res, err := svc.DetectObjects(ctx, img, skil.DetectOptions{
			Threshold:          threshold,
			NeedsPreprocessing: preprocess,
			Version:            version,
		})
		if err != nil {
			return result{}, err
		}
		return result{res.ID, res}, nil
	})(prog, args, stdin, stdout, stderr)
}

func decodeImageFile(fn string) (image.Image, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return img, nil
}
