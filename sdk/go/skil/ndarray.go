// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"encoding/json"
	"fmt"
)

// NDArray is a dense n-dimensional array of float64 values stored in
// row-major (C) order.
type NDArray struct {
	Shape []int
	Data  []float64
}

// NewNDArray returns an array with the given shape backed by data,
// which must be in row-major order and have exactly as many elements
// as the shape describes. data is not copied.
func NewNDArray(shape []int, data []float64) (*NDArray, error) {
	n, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return &NDArray{Shape: append([]int(nil), shape...), Data: data}, nil
}

// FromRows returns a 2-D array built from equal-length rows.
func FromRows(rows [][]float64) (*NDArray, error) {
	if len(rows) == 0 {
		return NewNDArray([]int{0, 0}, nil)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return NewNDArray([]int{len(rows), cols}, data)
}

func shapeSize(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	return n, nil
}

// Len returns the number of elements.
func (a *NDArray) Len() int {
	return len(a.Data)
}

// At returns the element at the given index, which must have one
// coordinate per dimension.
func (a *NDArray) At(idx ...int) float64 {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("NDArray.At: %d indices for %d dimensions", len(idx), len(a.Shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.Shape[i] {
			panic(fmt.Sprintf("NDArray.At: index %v out of range for shape %v", idx, a.Shape))
		}
		off = off*a.Shape[i] + x
	}
	return a.Data[off]
}

// Reshape returns an array sharing a's data with a new shape of the
// same size.
func (a *NDArray) Reshape(shape ...int) (*NDArray, error) {
	return NewNDArray(shape, a.Data)
}

// ExpandDims returns an array sharing a's data with a new dimension
// of size 1 inserted at axis.
func (a *NDArray) ExpandDims(axis int) *NDArray {
	if axis < 0 || axis > len(a.Shape) {
		panic(fmt.Sprintf("NDArray.ExpandDims: axis %d out of range for shape %v", axis, a.Shape))
	}
	shape := make([]int, 0, len(a.Shape)+1)
	shape = append(shape, a.Shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, a.Shape[axis:]...)
	return &NDArray{Shape: shape, Data: a.Data}
}

// Wire orderings.
const (
	OrderingC       = "c"
	OrderingFortran = "f"
)

// wireNDArray is the INDArray descriptor used in request and
// response bodies.
type wireNDArray struct {
	Ordering string    `json:"ordering"`
	Shape    []int     `json:"shape"`
	Data     []float64 `json:"data"`
}

// MarshalJSON encodes a as a flattened, row-major descriptor.
func (a *NDArray) MarshalJSON() ([]byte, error) {
	data := a.Data
	if data == nil {
		data = []float64{}
	}
	return json.Marshal(wireNDArray{Ordering: OrderingC, Shape: a.Shape, Data: data})
}

// UnmarshalJSON decodes a flattened descriptor. Column-major ("f")
// payloads are converted to row-major.
func (a *NDArray) UnmarshalJSON(buf []byte) error {
	var w wireNDArray
	if err := json.Unmarshal(buf, &w); err != nil {
		return err
	}
	arr, err := NewNDArray(w.Shape, w.Data)
	if err != nil {
		return err
	}
	switch w.Ordering {
	case "", OrderingC:
	case OrderingFortran:
		arr.Data = fortranToC(arr.Shape, arr.Data)
	default:
		return fmt.Errorf("unsupported array ordering %q", w.Ordering)
	}
	*a = *arr
	return nil
}

// fortranToC returns the row-major copy of column-major data.
func fortranToC(shape []int, data []float64) []float64 {
	out := make([]float64, len(data))
	idx := make([]int, len(shape))
	for c := range data {
		// idx is the coordinate of out[c] in row-major order;
		// find its offset in column-major order.
		f, stride := 0, 1
		for i := range shape {
			f += idx[i] * stride
			stride *= shape[i]
		}
		out[c] = data[f]
		for i := len(shape) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < shape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}
