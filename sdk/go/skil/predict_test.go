// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil_test

import (
	"errors"
	"image"
	"image/color"
	"net/http"
	"os"
	"strconv"

	"git.skymind.io/skil-go.git/sdk/go/skil"
	"git.skymind.io/skil-go.git/sdk/go/skiltest"
	check "gopkg.in/check.v1"
)

var _ = check.Suite(&PredictSuite{})

type PredictSuite struct {
	deployedSuite
	svc *skil.ModelService
}

func (s *PredictSuite) SetUpTest(c *check.C) {
	s.deployedSuite.SetUpTest(c)
	var err error
	s.svc, err = s.model.Deploy(s.ctx, s.dep, skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
}

// sumRows turns each [n, k] input into an [n, 1] output holding the
// row sums.
func sumRows(inputs []skiltest.Array) []skiltest.Array {
	var out []skiltest.Array
	for _, in := range inputs {
		n, k := in.Shape[0], in.Shape[1]
		sums := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < k; j++ {
				sums[i] += in.Data[i*k+j]
			}
		}
		out = append(out, skiltest.Array{Ordering: "c", Shape: []int{n, 1}, Data: sums})
	}
	return out
}

func (s *PredictSuite) TestPredictBatch(c *check.C) {
	s.srv.Predict = sumRows
	in, err := skil.FromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	c.Assert(err, check.IsNil)
	p, err := s.svc.Predict(s.ctx, "", in)
	c.Assert(err, check.IsNil)
	out, err := p.Single()
	c.Assert(err, check.IsNil)
	c.Check(out.Shape, check.DeepEquals, []int{3, 1})
	c.Check(out.Data, check.DeepEquals, []float64{3, 7, 11})
	c.Check(s.srv.CallCount("POST /endpoints/dep/model/iris/default/multipredict"), check.Equals, 1)
}

func (s *PredictSuite) TestPredictVersion(c *check.C) {
	_, err := s.svc.Predict(s.ctx, "v2", mustArray(c, []int{1, 1}, 0))
	c.Assert(err, check.IsNil)
	c.Check(s.srv.CallCount("POST /endpoints/dep/model/iris/v2/multipredict"), check.Equals, 1)
}

func (s *PredictSuite) TestPredictMultipleOutputs(c *check.C) {
	a := mustArray(c, []int{1, 2}, 1, 2)
	b := mustArray(c, []int{1, 3}, 3, 4, 5)
	p, err := s.svc.Predict(s.ctx, "", a, b)
	c.Assert(err, check.IsNil)
	c.Assert(p, check.HasLen, 2)
	c.Check(p[1].Data, check.DeepEquals, []float64{3, 4, 5})
	_, err = p.Single()
	c.Check(err, check.ErrorMatches, `prediction has 2 outputs, want 1`)
}

func (s *PredictSuite) TestPredictSingle(c *check.C) {
	var gotShape []int
	s.srv.Predict = func(in []skiltest.Array) []skiltest.Array {
		gotShape = in[0].Shape
		return sumRows(in)
	}
	out, err := s.svc.PredictSingle(s.ctx, "", mustArray(c, []int{4}, 1, 2, 3, 4))
	c.Assert(err, check.IsNil)
	c.Check(gotShape, check.DeepEquals, []int{1, 4})
	c.Check(out.Shape, check.DeepEquals, []int{1, 1})
	c.Check(out.At(0, 0), check.Equals, 10.0)
}

func (s *PredictSuite) TestPredictFortranResponse(c *check.C) {
	s.srv.Predict = func([]skiltest.Array) []skiltest.Array {
		return []skiltest.Array{{Ordering: "f", Shape: []int{2, 3}, Data: []float64{1, 4, 2, 5, 3, 6}}}
	}
	p, err := s.svc.Predict(s.ctx, "", mustArray(c, []int{1, 1}, 0))
	c.Assert(err, check.IsNil)
	c.Check(p[0].Data, check.DeepEquals, []float64{1, 2, 3, 4, 5, 6})
}

func (s *PredictSuite) TestPredictNoInputs(c *check.C) {
	_, err := s.svc.Predict(s.ctx, "")
	c.Check(err, check.ErrorMatches, `no inputs given`)
}

func (s *PredictSuite) TestPredictNoOutputs(c *check.C) {
	s.srv.Predict = func([]skiltest.Array) []skiltest.Array { return nil }
	_, err := s.svc.Predict(s.ctx, "", mustArray(c, []int{1, 1}, 0))
	c.Check(err, check.ErrorMatches, `server returned no outputs`)
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	return img
}

func (s *PredictSuite) dirEntries(c *check.C, dir string) []os.DirEntry {
	ents, err := os.ReadDir(dir)
	c.Assert(err, check.IsNil)
	return ents
}

func (s *PredictSuite) TestDetectObjects(c *check.C) {
	tmp := c.MkDir()
	res, err := s.svc.DetectObjects(s.ctx, testImage(32, 24), skil.DetectOptions{TempDir: tmp, Threshold: 0.25})
	c.Assert(err, check.IsNil)
	c.Check(res.ImageWidth, check.Equals, 32)
	c.Check(res.ImageHeight, check.Equals, 24)
	c.Check(res.ImageID, check.Equals, s.model.ID)
	c.Assert(res.Objects, check.HasLen, 1)
	label, conf := res.Objects[0].Label()
	c.Check(label, check.Equals, "dog")
	c.Check(conf, check.Equals, 0.7)

	form := s.srv.LastForm("detect")
	c.Check(form["threshold"], check.Equals, "0.25")
	c.Check(form["needs_preprocessing"], check.Equals, "false")
	c.Check(s.srv.CallCount("POST /endpoints/dep/model/iris/v"+strconv.Itoa(s.model.Version)+"/detectobjects"), check.Equals, 1)
	c.Check(s.dirEntries(c, tmp), check.HasLen, 0)
}

func (s *PredictSuite) TestDetectObjectsDefaults(c *check.C) {
	_, err := s.svc.DetectObjects(s.ctx, testImage(4, 4), skil.DetectOptions{TempDir: c.MkDir(), NeedsPreprocessing: true, Version: "latest"})
	c.Assert(err, check.IsNil)
	form := s.srv.LastForm("detect")
	c.Check(form["threshold"], check.Equals, "0.5")
	c.Check(form["needs_preprocessing"], check.Equals, "true")
	c.Check(s.srv.CallCount("POST /endpoints/dep/model/iris/latest/detectobjects"), check.Equals, 1)
}

func (s *PredictSuite) TestDetectObjectsFailureRemovesTempFile(c *check.C) {
	tmp := c.MkDir()
	s.srv.Fail("/endpoints/", http.StatusInternalServerError)
	_, err := s.svc.DetectObjects(s.ctx, testImage(8, 8), skil.DetectOptions{TempDir: tmp})
	var te *skil.TransactionError
	c.Assert(errors.As(err, &te), check.Equals, true)
	c.Check(te.StatusCode, check.Equals, http.StatusInternalServerError)
	c.Check(s.dirEntries(c, tmp), check.HasLen, 0)
}

func (s *PredictSuite) TestDetectObjectsNoImage(c *check.C) {
	_, err := s.svc.DetectObjects(s.ctx, nil, skil.DetectOptions{})
	c.Check(err, check.Equals, skil.ErrNoImage)
}

func (s *PredictSuite) TestDetectObjectsBadTempDir(c *check.C) {
	_, err := s.svc.DetectObjects(s.ctx, testImage(2, 2), skil.DetectOptions{TempDir: "/nonexistent/skil-test"})
	c.Check(errors.Is(err, os.ErrNotExist), check.Equals, true)
}
