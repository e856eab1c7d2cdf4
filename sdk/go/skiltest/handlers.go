// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skiltest

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const maxMemory = 32 << 20

func (s *Server) upload(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.rememberForm("upload", req)
	var list []map[string]string
	for _, fh := range req.MultipartForm.File["file"] {
		buf, err := readPart(fh.Open())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.mtx.Lock()
		s.uploads[fh.Filename] = buf
		s.mtx.Unlock()
		list = append(list, map[string]string{
			"fileName": fh.Filename,
			"path":     "file:///opt/skil/uploads/" + fh.Filename,
			"status":   "uploaded",
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"fileUploadResponseList": list})
}

func readPart(f io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) rememberForm(route string, req *http.Request) {
	fields := map[string]string{}
	for k, v := range req.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	s.mtx.Lock()
	s.forms[route] = fields
	s.mtx.Unlock()
}

func (s *Server) deployModel(w http.ResponseWriter, req *http.Request) {
	depID := mux.Vars(req)["deployment"]
	var body map[string]interface{}
	if !readJSON(w, req, &body) {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.objects["deployments"][depID]; !ok {
		writeError(w, http.StatusNotFound, "no such deployment "+depID)
		return
	}
	md := map[string]interface{}{
		"id":           s.newID("md"),
		"name":         body["name"],
		"deploymentId": depID,
		"modelType":    body["modelType"],
		"scale":        body["scale"],
		"state":        "stopped",
	}
	s.store("modeldeployments", md, "id")
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) modelDeployment(w http.ResponseWriter, req *http.Request) map[string]interface{} {
	vars := mux.Vars(req)
	md, ok := s.objects["modeldeployments"][vars["model"]]
	if !ok || md["deploymentId"] != vars["deployment"] {
		writeError(w, http.StatusNotFound, "no such model "+vars["model"])
		return nil
	}
	return md
}

func (s *Server) getModelDeployment(w http.ResponseWriter, req *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if md := s.modelDeployment(w, req); md != nil {
		writeJSON(w, http.StatusOK, md)
	}
}

func (s *Server) undeployModel(w http.ResponseWriter, req *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if md := s.modelDeployment(w, req); md != nil {
		delete(s.objects["modeldeployments"], md["id"].(string))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) stateChange(w http.ResponseWriter, req *http.Request) {
	var body struct {
		State string `json:"state"`
	}
	if !readJSON(w, req, &body) {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	md := s.modelDeployment(w, req)
	if md == nil {
		return
	}
	var pending, done string
	switch body.State {
	case "start":
		pending, done = "starting", "started"
	case "stop":
		pending, done = "stopping", "stopped"
	default:
		writeError(w, http.StatusBadRequest, "unknown state change "+body.State)
		return
	}
	id := md["id"].(string)
	switch {
	case s.StuckState != "":
		md["state"] = s.StuckState
	case s.polls[id] < s.TransitionPolls:
		s.polls[id]++
		md["state"] = pending
	default:
		s.polls[id] = 0
		md["state"] = done
	}
	writeJSON(w, http.StatusOK, md)
}

// Started reports whether the model deployment with the given name
// is in the "started" state.
func (s *Server) Started(name string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, md := range s.objects["modeldeployments"] {
		if md["name"] == name {
			return md["state"] == "started"
		}
	}
	return false
}

func (s *Server) multipredict(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ID     string  `json:"id"`
		Inputs []Array `json:"inputs"`
	}
	if !readJSON(w, req, &body) {
		return
	}
	s.mtx.Lock()
	predict := s.Predict
	s.mtx.Unlock()
	outputs := body.Inputs
	if predict != nil {
		outputs = predict(body.Inputs)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": body.ID, "outputs": outputs})
}

func (s *Server) detect(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.rememberForm("detect", req)
	fhs := req.MultipartForm.File["file"]
	if len(fhs) != 1 {
		writeError(w, http.StatusBadRequest, "expected exactly one file")
		return
	}
	buf, err := readPart(fhs[0].Open())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil || format != "jpeg" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file is not a JPEG image (%q, %v)", format, err))
		return
	}
	s.mtx.Lock()
	res := map[string]interface{}{}
	for k, v := range s.Detection {
		res[k] = v
	}
	s.mtx.Unlock()
	res["imageId"] = req.FormValue("id")
	res["imageName"] = fhs[0].Filename
	res["imageWidth"] = cfg.Width
	res["imageHeight"] = cfg.Height
	writeJSON(w, http.StatusOK, res)
}

type csvRecord struct {
	Values []string `json:"values"`
}

type csvBatch struct {
	Records []csvRecord `json:"records"`
}

func (s *Server) transformCSV(w http.ResponseWriter, req *http.Request) {
	var body csvBatch
	if readJSON(w, req, &body) {
		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) transformCSVIncremental(w http.ResponseWriter, req *http.Request) {
	var body csvRecord
	if readJSON(w, req, &body) {
		writeJSON(w, http.StatusOK, body)
	}
}

func parseFloats(values []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (s *Server) transformArray(w http.ResponseWriter, req *http.Request) {
	var body csvBatch
	if !readJSON(w, req, &body) {
		return
	}
	arr := Array{Ordering: "c", Shape: []int{len(body.Records), 0}, Data: []float64{}}
	for i, rec := range body.Records {
		row, err := parseFloats(rec.Values)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if i > 0 && len(row) != arr.Shape[1] {
			writeError(w, http.StatusBadRequest, "ragged records")
			return
		}
		arr.Shape[1] = len(row)
		arr.Data = append(arr.Data, row...)
	}
	writeJSON(w, http.StatusOK, arr)
}

func (s *Server) transformArrayIncremental(w http.ResponseWriter, req *http.Request) {
	var body csvRecord
	if !readJSON(w, req, &body) {
		return
	}
	row, err := parseFloats(body.Values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, Array{Ordering: "c", Shape: []int{len(row)}, Data: row})
}

// imageArray returns the pixels of img as an [H, W, 3] array.
func imageArray(img image.Image) Array {
	b := img.Bounds()
	arr := Array{Ordering: "c", Shape: []int{b.Dy(), b.Dx(), 3}}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			arr.Data = append(arr.Data, float64(r>>8), float64(g>>8), float64(bl>>8))
		}
	}
	return arr
}

func (s *Server) transformImage(single bool) http.HandlerFunc {
	field, route := "files", "transformimage"
	if single {
		field, route = "file", "transformincrementalimage"
	}
	return func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(maxMemory); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.rememberForm(route, req)
		fhs := req.MultipartForm.File[field]
		if len(fhs) == 0 || (single && len(fhs) > 1) {
			writeError(w, http.StatusBadRequest, "wrong number of "+field)
			return
		}
		var out Array
		for i, fh := range fhs {
			buf, err := readPart(fh.Open())
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			img, _, err := image.Decode(bytes.NewReader(buf))
			if err != nil {
				writeError(w, http.StatusBadRequest, fh.Filename+": "+err.Error())
				return
			}
			arr := imageArray(img)
			if single {
				out = arr
				break
			}
			if i == 0 {
				out = Array{Ordering: "c", Shape: append([]int{0}, arr.Shape...)}
			} else if fmt.Sprint(arr.Shape) != fmt.Sprint(out.Shape[1:]) {
				writeError(w, http.StatusBadRequest, "images differ in size")
				return
			}
			out.Shape[0]++
			out.Data = append(out.Data, arr.Data...)
		}
		writeJSON(w, http.StatusOK, out)
	}
}
