// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"encoding/json"
	"strings"
)

// Input is the payload accepted by a Pipeline. Depending on the
// pipeline's transform stage it is one of Arrays, CSVBatch,
// CSVRecord, Images or Image.
type Input interface {
	input()
}

// Arrays are model inputs, one per model input variable.
type Arrays []*NDArray

// CSVRecord is a single CSV record, one string per column.
type CSVRecord []string

// CSVBatch is a batch of CSV records.
type CSVBatch []CSVRecord

// Images are a batch of encoded images.
type Images []Image

func (Arrays) input()    {}
func (CSVRecord) input() {}
func (CSVBatch) input()  {}
func (Images) input()    {}
func (Image) input()     {}

// ParseCSVRecord splits line on sep. Quoting is not interpreted.
func ParseCSVRecord(line, sep string) CSVRecord {
	return CSVRecord(strings.Split(line, sep))
}

// ParseCSVBatch splits each line on sep, skipping empty lines.
func ParseCSVBatch(lines []string, sep string) CSVBatch {
	batch := make(CSVBatch, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		batch = append(batch, ParseCSVRecord(line, sep))
	}
	return batch
}

type wireCSVRecord struct {
	Values []string `json:"values"`
}

type wireCSVBatch struct {
	Records []wireCSVRecord `json:"records"`
}

func (r CSVRecord) MarshalJSON() ([]byte, error) {
	values := []string(r)
	if values == nil {
		values = []string{}
	}
	return json.Marshal(wireCSVRecord{Values: values})
}

func (r *CSVRecord) UnmarshalJSON(buf []byte) error {
	var w wireCSVRecord
	if err := json.Unmarshal(buf, &w); err != nil {
		return err
	}
	*r = CSVRecord(w.Values)
	return nil
}

func (b CSVBatch) MarshalJSON() ([]byte, error) {
	w := wireCSVBatch{Records: make([]wireCSVRecord, len(b))}
	for i, r := range b {
		w.Records[i].Values = []string(r)
		if w.Records[i].Values == nil {
			w.Records[i].Values = []string{}
		}
	}
	return json.Marshal(w)
}

func (b *CSVBatch) UnmarshalJSON(buf []byte) error {
	var w wireCSVBatch
	if err := json.Unmarshal(buf, &w); err != nil {
		return err
	}
	batch := make(CSVBatch, len(w.Records))
	for i, r := range w.Records {
		batch[i] = CSVRecord(r.Values)
	}
	*b = batch
	return nil
}
