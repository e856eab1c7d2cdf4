// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"encoding/json"

	check "gopkg.in/check.v1"
)

var _ = check.Suite(&NDArraySuite{})

type NDArraySuite struct{}

func (s *NDArraySuite) TestNewNDArray(c *check.C) {
	shape := []int{2, 3}
	a, err := NewNDArray(shape, []float64{1, 2, 3, 4, 5, 6})
	c.Assert(err, check.IsNil)
	shape[0] = 99
	c.Check(a.Shape, check.DeepEquals, []int{2, 3})
	c.Check(a.Len(), check.Equals, 6)
	c.Check(a.At(1, 0), check.Equals, 4.0)
	c.Check(a.At(0, 2), check.Equals, 3.0)

	_, err = NewNDArray([]int{2, 2}, []float64{1})
	c.Check(err, check.ErrorMatches, `shape \[2 2\] needs 4 elements, got 1`)
	_, err = NewNDArray([]int{-1}, nil)
	c.Check(err, check.ErrorMatches, `negative dimension.*`)
}

func (s *NDArraySuite) TestScalarShape(c *check.C) {
	a, err := NewNDArray(nil, []float64{7})
	c.Assert(err, check.IsNil)
	c.Check(a.At(), check.Equals, 7.0)
}

func (s *NDArraySuite) TestFromRows(c *check.C) {
	a, err := FromRows([][]float64{{1, 2}, {3, 4}})
	c.Assert(err, check.IsNil)
	c.Check(a.Shape, check.DeepEquals, []int{2, 2})
	_, err = FromRows([][]float64{{1, 2}, {3}})
	c.Check(err, check.ErrorMatches, `row 1 has 1 columns, want 2`)
	a, err = FromRows(nil)
	c.Assert(err, check.IsNil)
	c.Check(a.Shape, check.DeepEquals, []int{0, 0})
}

func (s *NDArraySuite) TestAtOutOfRange(c *check.C) {
	a, _ := NewNDArray([]int{2}, []float64{1, 2})
	c.Check(func() { a.At(2) }, check.PanicMatches, `NDArray.At: index \[2\] out of range.*`)
	c.Check(func() { a.At(0, 0) }, check.PanicMatches, `NDArray.At: 2 indices for 1 dimensions`)
}

func (s *NDArraySuite) TestReshapeExpandDims(c *check.C) {
	a, _ := NewNDArray([]int{6}, []float64{1, 2, 3, 4, 5, 6})
	b, err := a.Reshape(3, 2)
	c.Assert(err, check.IsNil)
	c.Check(b.At(2, 1), check.Equals, 6.0)
	_, err = a.Reshape(4, 2)
	c.Check(err, check.NotNil)

	c.Check(a.ExpandDims(0).Shape, check.DeepEquals, []int{1, 6})
	c.Check(a.ExpandDims(1).Shape, check.DeepEquals, []int{6, 1})
	c.Check(a.Shape, check.DeepEquals, []int{6})
	c.Check(func() { a.ExpandDims(3) }, check.Panics, "NDArray.ExpandDims: axis 3 out of range for shape [6]")
}

func (s *NDArraySuite) TestMarshal(c *check.C) {
	a, _ := NewNDArray([]int{1, 2}, []float64{0.5, 1.5})
	buf, err := json.Marshal(a)
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Equals, `{"ordering":"c","shape":[1,2],"data":[0.5,1.5]}`)

	buf, err = json.Marshal(&NDArray{Shape: []int{0}})
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Equals, `{"ordering":"c","shape":[0],"data":[]}`)

	var back NDArray
	c.Assert(json.Unmarshal([]byte(`{"ordering":"c","shape":[1,2],"data":[0.5,1.5]}`), &back), check.IsNil)
	c.Check(&back, check.DeepEquals, a)
}

func (s *NDArraySuite) TestUnmarshalFortran(c *check.C) {
	var a NDArray
	// [[1 2 3] [4 5 6]] stored column-major
	err := json.Unmarshal([]byte(`{"ordering":"f","shape":[2,3],"data":[1,4,2,5,3,6]}`), &a)
	c.Assert(err, check.IsNil)
	c.Check(a.Data, check.DeepEquals, []float64{1, 2, 3, 4, 5, 6})

	// 3-D: element (i,j,k) = 100i+10j+k, shape [2,2,2]
	err = json.Unmarshal([]byte(`{"ordering":"f","shape":[2,2,2],"data":[0,100,10,110,1,101,11,111]}`), &a)
	c.Assert(err, check.IsNil)
	c.Check(a.Data, check.DeepEquals, []float64{0, 1, 10, 11, 100, 101, 110, 111})
}

func (s *NDArraySuite) TestUnmarshalErrors(c *check.C) {
	var a NDArray
	c.Check(json.Unmarshal([]byte(`{"ordering":"x","shape":[1],"data":[1]}`), &a), check.ErrorMatches, `unsupported array ordering "x"`)
	c.Check(json.Unmarshal([]byte(`{"shape":[3],"data":[1]}`), &a), check.ErrorMatches, `shape \[3\] needs 3 elements, got 1`)
	c.Check(json.Unmarshal([]byte(`{"shape":[1],"data":[2]}`), &a), check.IsNil)
	c.Check(a.Data, check.DeepEquals, []float64{2})
}

var _ = check.Suite(&InputSuite{})

type InputSuite struct{}

func (s *InputSuite) TestCSVWire(c *check.C) {
	buf, err := json.Marshal(CSVRecord{"a", "b"})
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Equals, `{"values":["a","b"]}`)

	buf, err = json.Marshal(CSVBatch{{"1"}, nil})
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Equals, `{"records":[{"values":["1"]},{"values":[]}]}`)

	var batch CSVBatch
	c.Assert(json.Unmarshal([]byte(`{"records":[{"values":["x","y"]}]}`), &batch), check.IsNil)
	c.Check(batch, check.DeepEquals, CSVBatch{{"x", "y"}})
}

func (s *InputSuite) TestParseCSV(c *check.C) {
	c.Check(ParseCSVRecord("1;2;3", ";"), check.DeepEquals, CSVRecord{"1", "2", "3"})
	c.Check(ParseCSVBatch([]string{"a,b", "", "c,d"}, ","), check.DeepEquals, CSVBatch{{"a", "b"}, {"c", "d"}})
	c.Check(ParseCSVBatch(nil, ","), check.HasLen, 0)
}

var _ = check.Suite(&EndpointSuite{})

type EndpointSuite struct{}

func (s *EndpointSuite) TestExpand(c *check.C) {
	c.Check(EndpointDeploymentGet.Expand("id", "3"), check.Equals, "deployment/3")
	c.Check(EndpointMultiPredict.Expand("deployment", "dep", "model", "my model", "version", "default"),
		check.Equals, "endpoints/dep/model/my%20model/default/multipredict")
	c.Check(EndpointWorkSpaceGet.Expand("server", "s1", "id", "a/b"),
		check.Equals, "rpc/s1/modelhistory/workspaces/a%2Fb")
	// odd trailing var is ignored
	c.Check(EndpointDeploymentGet.Expand("id"), check.Equals, "deployment/{id}")
	c.Check(EndpointModelStateChange.String(), check.Equals, "POST deployment/{deployment}/model/{model}/state")
}
