// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Image is an encoded image file (JPEG, PNG, ...) to be sent to an
// image transform.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
}

// ImageFromFile reads an encoded image from disk.
func ImageFromFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	mt := http.DetectContentType(data)
	if !strings.HasPrefix(mt, "image/") {
		return Image{}, fmt.Errorf("%s: not an image (detected %s)", path, mt)
	}
	return Image{Name: filepath.Base(path), MimeType: mt, Data: data}, nil
}

// EncodeJPEG returns img encoded as a JPEG Image with the given name.
func EncodeJPEG(name string, img image.Image) (Image, error) {
	if img == nil {
		return Image{}, ErrNoImage
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
		return Image{}, err
	}
	return Image{Name: name, MimeType: "image/jpeg", Data: buf.Bytes()}, nil
}

// ImageToNDArray returns the pixels of img as an [H, W, 3] array of
// RGB values in [0, 255].
func ImageToNDArray(img image.Image) *NDArray {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	data := make([]float64, 0, h*w*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			data = append(data, float64(r>>8), float64(g>>8), float64(bl>>8))
		}
	}
	return &NDArray{Shape: []int{h, w, 3}, Data: data}
}

// Image interprets a as pixel data and returns it as an image.
// Accepted layouts are [H, W] (grayscale), [H, W, C] and [C, H, W]
// with C of 1 or 3, optionally with a leading batch dimension of 1.
// Values are clamped to [0, 255].
func (a *NDArray) Image() (image.Image, error) {
	shape := a.Shape
	if len(shape) == 4 && shape[0] == 1 {
		shape = shape[1:]
	}
	switch {
	case len(shape) == 2:
		return a.pixels(shape[0], shape[1], 1, false), nil
	case len(shape) == 3 && (shape[2] == 1 || shape[2] == 3):
		return a.pixels(shape[0], shape[1], shape[2], false), nil
	case len(shape) == 3 && (shape[0] == 1 || shape[0] == 3):
		return a.pixels(shape[1], shape[2], shape[0], true), nil
	default:
		return nil, fmt.Errorf("cannot interpret array of shape %v as an image", a.Shape)
	}
}

func (a *NDArray) pixels(h, w, ch int, planar bool) image.Image {
	at := func(y, x, c int) uint8 {
		var v float64
		if planar {
			v = a.Data[(c*h+y)*w+x]
		} else {
			v = a.Data[(y*w+x)*ch+c]
		}
		return uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	if ch == 1 {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray(x, y, color.Gray{Y: at(y, x, 0)})
			}
		}
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: at(y, x, 0), G: at(y, x, 1), B: at(y, x, 2), A: 255})
		}
	}
	return img
}

func (img Image) formFile(field string) FormFile {
	name := img.Name
	if name == "" {
		name = "image"
	}
	return FormFile{Field: field, Name: name, ContentType: img.MimeType, Body: bytes.NewReader(img.Data)}
}
