// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil_test

import (
	"errors"

	"git.skymind.io/skil-go.git/sdk/go/skil"
	check "gopkg.in/check.v1"
)

var _ = check.Suite(&TransformSuite{})

type TransformSuite struct {
	deployedSuite
}

func (s *TransformSuite) deploy(c *check.C, name string, tt skil.TransformType) skil.Service {
	t, err := skil.NewTransform(s.ctx, s.exp, skil.TransformOptions{Location: "file:///transforms/" + name + ".json", Name: name, Type: tt})
	c.Assert(err, check.IsNil)
	c.Check(t.Type, check.Equals, tt)
	svc, err := t.Deploy(s.ctx, s.dep, skil.DeployOptions{Start: true})
	c.Assert(err, check.IsNil)
	c.Check(s.srv.Started(name), check.Equals, true)
	return svc
}

var irisLines = []string{
	"5.1,3.5,1.4,0.2",
	"",
	"6.2,3.4,5.4,2.3",
}

func (s *TransformSuite) TestCSV(c *check.C) {
	svc, ok := s.deploy(c, "csv", skil.TransformTypeCSV).(*skil.TransformCSVService)
	c.Assert(ok, check.Equals, true)

	batch := skil.ParseCSVBatch(irisLines, ",")
	c.Assert(batch, check.HasLen, 2)
	out, err := svc.Predict(s.ctx, "", batch)
	c.Assert(err, check.IsNil)
	c.Check(out, check.DeepEquals, batch)

	rec, err := svc.PredictSingle(s.ctx, "", skil.ParseCSVRecord("a,b", ","))
	c.Assert(err, check.IsNil)
	c.Check(rec, check.DeepEquals, skil.CSVRecord{"a", "b"})
	c.Check(s.srv.CallCount("POST /endpoints/dep/datavec/csv/default/transformincremental"), check.Equals, 1)
}

func (s *TransformSuite) TestArray(c *check.C) {
	svc, ok := s.deploy(c, "arr", skil.TransformTypeArray).(*skil.TransformArrayService)
	c.Assert(ok, check.Equals, true)

	arr, err := svc.Predict(s.ctx, "", skil.ParseCSVBatch(irisLines, ","))
	c.Assert(err, check.IsNil)
	c.Check(arr.Shape, check.DeepEquals, []int{2, 4})
	c.Check(arr.At(1, 2), check.Equals, 5.4)

	one, err := svc.PredictSingle(s.ctx, "v1", skil.ParseCSVRecord(irisLines[0], ","))
	c.Assert(err, check.IsNil)
	c.Check(one.Shape, check.DeepEquals, []int{4})
	c.Check(s.srv.CallCount("POST /endpoints/dep/datavec/arr/v1/transformincrementalarray"), check.Equals, 1)

	arr, err = svc.BatchToArray(s.ctx, "", skil.ParseCSVRecord(irisLines[0], ","))
	c.Assert(err, check.IsNil)
	c.Check(arr.Shape, check.DeepEquals, []int{1, 4})

	_, err = svc.SingleToArray(s.ctx, "", skil.Arrays{one})
	c.Check(errors.Is(err, skil.ErrUnsupportedInput), check.Equals, true)
	_, err = svc.BatchToArray(s.ctx, "", skil.Images{})
	c.Check(errors.Is(err, skil.ErrUnsupportedInput), check.Equals, true)
}

func (s *TransformSuite) TestArrayBadRecord(c *check.C) {
	svc := s.deploy(c, "arr", skil.TransformTypeArray).(*skil.TransformArrayService)
	_, err := svc.PredictSingle(s.ctx, "", skil.CSVRecord{"x"})
	var te *skil.TransactionError
	c.Check(errors.As(err, &te), check.Equals, true)
}

func (s *TransformSuite) TestImage(c *check.C) {
	svc, ok := s.deploy(c, "img", skil.TransformTypeImage).(*skil.TransformImageService)
	c.Assert(ok, check.Equals, true)

	img, err := skil.EncodeJPEG("a.jpg", testImage(6, 4))
	c.Assert(err, check.IsNil)
	one, err := svc.PredictSingle(s.ctx, "", img)
	c.Assert(err, check.IsNil)
	c.Check(one.Shape, check.DeepEquals, []int{4, 6, 3})

	batch, err := svc.Predict(s.ctx, "", []skil.Image{img, img, img})
	c.Assert(err, check.IsNil)
	c.Check(batch.Shape, check.DeepEquals, []int{3, 4, 6, 3})

	batch, err = svc.BatchToArray(s.ctx, "", img)
	c.Assert(err, check.IsNil)
	c.Check(batch.Shape, check.DeepEquals, []int{1, 4, 6, 3})

	_, err = svc.Predict(s.ctx, "", nil)
	c.Check(err, check.ErrorMatches, `no images given`)
	_, err = svc.SingleToArray(s.ctx, "", skil.Images{img})
	c.Check(errors.Is(err, skil.ErrUnsupportedInput), check.Equals, true)
}

func (s *TransformSuite) TestImageNotDecodable(c *check.C) {
	svc := s.deploy(c, "img", skil.TransformTypeImage).(*skil.TransformImageService)
	_, err := svc.PredictSingle(s.ctx, "", skil.Image{Name: "junk.jpg", MimeType: "image/jpeg", Data: []byte("not a jpeg")})
	c.Check(err, check.ErrorMatches, `.*400.*junk\.jpg.*`)
}

func (s *TransformSuite) TestStopTransform(c *check.C) {
	svc := s.deploy(c, "csv", skil.TransformTypeCSV)
	c.Assert(svc.Stop(s.ctx), check.IsNil)
	c.Check(s.srv.Started("csv"), check.Equals, false)
}

func (s *TransformSuite) TestReattach(c *check.C) {
	svc := s.deploy(c, "arr", skil.TransformTypeArray).(*skil.TransformArrayService)
	again, ok := skil.NewTransformService(s.dep, skil.TransformTypeArray, svc.ModelDeployment()).(*skil.TransformArrayService)
	c.Assert(ok, check.Equals, true)
	out, err := again.PredictSingle(s.ctx, "", skil.CSVRecord{"1", "2"})
	c.Assert(err, check.IsNil)
	c.Check(out.Shape, check.DeepEquals, []int{2})
}
