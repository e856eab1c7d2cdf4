// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil_test

import (
	"errors"

	"git.skymind.io/skil-go.git/sdk/go/skil"
	check "gopkg.in/check.v1"
)

var _ = check.Suite(&PipelineSuite{})

type PipelineSuite struct {
	deployedSuite
}

func (s *PipelineSuite) newTransform(c *check.C, tt skil.TransformType) *skil.Transform {
	t, err := skil.NewTransform(s.ctx, s.exp, skil.TransformOptions{Location: "file:///transforms/tp.json", Name: "tp", Type: tt})
	c.Assert(err, check.IsNil)
	return t
}

func (s *PipelineSuite) TestChainEqualsStages(c *check.C) {
	s.srv.Predict = sumRows
	p, err := skil.NewPipeline(s.ctx, s.dep, s.model, s.newTransform(c, skil.TransformTypeArray), skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	c.Check(s.srv.Started("iris"), check.Equals, true)
	c.Check(s.srv.Started("tp"), check.Equals, true)

	batch := skil.ParseCSVBatch(irisLines, ",")
	got, err := p.Predict(s.ctx, "", batch)
	c.Assert(err, check.IsNil)

	arr, err := p.Transform.BatchToArray(s.ctx, "", batch)
	c.Assert(err, check.IsNil)
	want, err := p.Model.Predict(s.ctx, "", arr)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, want)
	c.Check(got[0].Shape, check.DeepEquals, []int{2, 1})
}

func (s *PipelineSuite) TestPredictSingle(c *check.C) {
	s.srv.Predict = sumRows
	p, err := skil.NewPipeline(s.ctx, s.dep, s.model, s.newTransform(c, skil.TransformTypeArray), skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	out, err := p.PredictSingle(s.ctx, "", skil.CSVRecord{"1", "2", "3"})
	c.Assert(err, check.IsNil)
	c.Check(out.Data, check.DeepEquals, []float64{6})
}

func (s *PipelineSuite) TestWithoutTransform(c *check.C) {
	p, err := skil.NewPipeline(s.ctx, s.dep, s.model, nil, skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	c.Check(p.Transform, check.IsNil)

	in := mustArray(c, []int{1, 2}, 1, 2)
	out, err := p.Predict(s.ctx, "", skil.Arrays{in})
	c.Assert(err, check.IsNil)
	c.Check(out[0].Data, check.DeepEquals, []float64{1, 2})

	_, err = p.Predict(s.ctx, "", skil.CSVBatch{})
	c.Check(errors.Is(err, skil.ErrUnsupportedInput), check.Equals, true)
	_, err = p.PredictSingle(s.ctx, "", skil.CSVRecord{"1"})
	c.Check(errors.Is(err, skil.ErrUnsupportedInput), check.Equals, true)

	res, err := p.DetectObjects(s.ctx, testImage(8, 8), skil.DetectOptions{TempDir: c.MkDir()})
	c.Assert(err, check.IsNil)
	c.Check(res.ImageWidth, check.Equals, 8)
}

func (s *PipelineSuite) TestCSVTransformRejected(c *check.C) {
	_, err := skil.NewPipeline(s.ctx, s.dep, s.model, s.newTransform(c, skil.TransformTypeCSV), skil.DeployOptions{})
	c.Check(err, check.ErrorMatches, `transform "tp" of type "csv" cannot feed a model`)
}

func (s *PipelineSuite) TestDetectThroughImageTransform(c *check.C) {
	p, err := skil.NewPipeline(s.ctx, s.dep, s.model, s.newTransform(c, skil.TransformTypeImage), skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	res, err := p.DetectObjects(s.ctx, testImage(10, 5), skil.DetectOptions{TempDir: c.MkDir()})
	c.Assert(err, check.IsNil)
	c.Check(res.ImageWidth, check.Equals, 10)
	c.Check(res.ImageHeight, check.Equals, 5)
	c.Check(s.srv.CallCount("POST /endpoints/dep/datavec/tp/default/transformincrementalimage"), check.Equals, 1)

	_, err = p.DetectObjects(s.ctx, nil, skil.DetectOptions{})
	c.Check(err, check.Equals, skil.ErrNoImage)
}

func (s *PipelineSuite) TestStageErrorPassesThrough(c *check.C) {
	p, err := skil.NewPipeline(s.ctx, s.dep, s.model, s.newTransform(c, skil.TransformTypeArray), skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	s.srv.Fail("/endpoints/dep/datavec/", 503)
	_, err = p.Predict(s.ctx, "", skil.ParseCSVBatch(irisLines, ","))
	var te *skil.TransactionError
	c.Assert(errors.As(err, &te), check.Equals, true)
	c.Check(te.StatusCode, check.Equals, 503)
	c.Check(s.srv.CallCount("POST /endpoints/dep/model/iris/default/multipredict"), check.Equals, 0)
}

func (s *PipelineSuite) TestStartStopBoth(c *check.C) {
	s.srv.TransitionPolls = 2
	p, err := skil.NewPipeline(s.ctx, s.dep, s.model, s.newTransform(c, skil.TransformTypeArray), skil.DeployOptions{})
	c.Assert(err, check.IsNil)
	c.Check(s.srv.Started("iris"), check.Equals, false)
	c.Assert(p.Start(s.ctx), check.IsNil)
	c.Check(s.srv.Started("iris"), check.Equals, true)
	c.Check(s.srv.Started("tp"), check.Equals, true)
	c.Assert(p.Stop(s.ctx), check.IsNil)
	c.Check(s.srv.Started("iris"), check.Equals, false)
	c.Check(s.srv.Started("tp"), check.Equals, false)
}

func (s *PipelineSuite) TestStartFailure(c *check.C) {
	s.srv.StuckState = string(skil.ModelStateError)
	p, err := skil.NewPipeline(s.ctx, s.dep, s.model, s.newTransform(c, skil.TransformTypeArray), skil.DeployOptions{Start: true})
	c.Check(p, check.NotNil)
	var se *skil.StateError
	c.Check(errors.As(err, &se), check.Equals, true)
}
