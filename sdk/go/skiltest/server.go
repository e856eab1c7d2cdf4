// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package skiltest provides an in-process fake SKIL server for
// tests. It keeps all state in memory and speaks the same wire format
// as the real server, without depending on the SDK's types.
package skiltest

import (
	"encoding/json"
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

const (
	UserID   = "admin"
	Password = "admin"
	Token    = "skiltest-token"
	ServerID = "mhs-0001"
)

// Array is the wire form of an NDArray.
type Array struct {
	Ordering string    `json:"ordering"`
	Shape    []int     `json:"shape"`
	Data     []float64 `json:"data"`
}

// Server is a fake SKIL server. Exported fields configure its
// behavior and may be changed between requests.
type Server struct {
	*httptest.Server

	// Number of "starting" (or "stopping") answers to state
	// change requests before the model reports "started" (or
	// "stopped").
	TransitionPolls int
	// If non-empty, state changes report this state instead.
	StuckState string

	// Predict computes multipredict outputs from inputs. The
	// default echoes the inputs back.
	Predict func(inputs []Array) []Array

	// Detection answers detectobjects calls.
	Detection map[string]interface{}

	mtx      sync.Mutex
	calls    []string
	failures map[string]int
	nextID   int
	objects  map[string]map[string]map[string]interface{}
	polls    map[string]int
	uploads  map[string][]byte
	forms    map[string]map[string]string
}

// NewServer starts a fake server. Call Close when done.
func NewServer() *Server {
	s := &Server{
		failures: map[string]int{},
		objects:  map[string]map[string]map[string]interface{}{},
		polls:    map[string]int{},
		uploads:  map[string][]byte{},
		forms:    map[string]map[string]string{},
		Detection: map[string]interface{}{
			"id":          "det-1",
			"imageWidth":  0,
			"imageHeight": 0,
			"objects": []interface{}{map[string]interface{}{
				"centerX": 10.0, "centerY": 12.0, "width": 4.0, "height": 6.0,
				"predictedClassNumbers": []int{1, 2},
				"predictedClasses":      []string{"cat", "dog"},
				"confidences":           []float64{0.3, 0.7},
			}},
		},
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// Host returns the host:port the server listens on.
func (s *Server) Host() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// Fail makes requests whose path starts with prefix fail with the
// given status. A status of 0 removes the failure.
func (s *Server) Fail(prefix string, status int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if status == 0 {
		delete(s.failures, prefix)
	} else {
		s.failures[prefix] = status
	}
}

// Calls returns "METHOD path" for every request received so far.
func (s *Server) Calls() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount returns the number of calls received for the given
// "METHOD path".
func (s *Server) CallCount(call string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// Upload returns the content of an uploaded file.
func (s *Server) Upload(name string) ([]byte, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	buf, ok := s.uploads[name]
	return buf, ok
}

// LastForm returns the non-file form fields of the most recent
// multipart request to the given route name ("detect", "upload",
// "transformimage", ...).
func (s *Server) LastForm(route string) map[string]string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.forms[route]
}

// Object returns a stored entity of the given kind ("workspaces",
// "experiments", "models", "deployments", "modeldeployments",
// "resources") by id.
func (s *Server) Object(kind, id string) (map[string]interface{}, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	obj, ok := s.objects[kind][id]
	return obj, ok
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record, s.failInjected)
	r.HandleFunc("/login", s.login).Methods("POST")

	api := r.NewRoute().Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/services", s.services).Methods("GET")
	api.HandleFunc("/api/upload/model", s.upload).Methods("POST")

	mh := "/rpc/{server}"
	s.crud(api, mh+"/modelhistory/workspaces", "workspaces", "modelHistoryId")
	s.crud(api, mh+"/experiments", "experiments", "experimentId")
	s.crud(api, mh+"/models", "models", "modelId")
	s.crud(api, "/resources", "resources", "resourceId")

	api.HandleFunc("/deployment", s.create("deployments", "id")).Methods("POST")
	api.HandleFunc("/deployments", s.list("deployments")).Methods("GET")
	api.HandleFunc("/deployment/{id}", s.get("deployments")).Methods("GET")
	api.HandleFunc("/deployment/{id}", s.del("deployments")).Methods("DELETE")
	api.HandleFunc("/deployment/{deployment}/model", s.deployModel).Methods("POST")
	api.HandleFunc("/deployment/{deployment}/model/{model}", s.getModelDeployment).Methods("GET")
	api.HandleFunc("/deployment/{deployment}/model/{model}", s.undeployModel).Methods("DELETE")
	api.HandleFunc("/deployment/{deployment}/model/{model}/state", s.stateChange).Methods("POST")

	ep := "/endpoints/{deployment}"
	api.HandleFunc(ep+"/model/{model}/{version}/multipredict", s.multipredict).Methods("POST")
	api.HandleFunc(ep+"/model/{model}/{version}/detectobjects", s.detect).Methods("POST")
	dv := ep + "/datavec/{transform}/{version}"
	api.HandleFunc(dv+"/transform", s.transformCSV).Methods("POST")
	api.HandleFunc(dv+"/transformincremental", s.transformCSVIncremental).Methods("POST")
	api.HandleFunc(dv+"/transformarray", s.transformArray).Methods("POST")
	api.HandleFunc(dv+"/transformincrementalarray", s.transformArrayIncremental).Methods("POST")
	api.HandleFunc(dv+"/transformimage", s.transformImage(false)).Methods("POST")
	api.HandleFunc(dv+"/transformincrementalimage", s.transformImage(true)).Methods("POST")
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mtx.Lock()
		s.calls = append(s.calls, req.Method+" "+req.URL.Path)
		s.mtx.Unlock()
		next.ServeHTTP(w, req)
	})
}

func (s *Server) failInjected(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mtx.Lock()
		status := 0
		for prefix, st := range s.failures {
			if strings.HasPrefix(req.URL.Path, prefix) {
				status = st
			}
		}
		s.mtx.Unlock()
		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"errors": []string{msg}})
}

func readJSON(w http.ResponseWriter, req *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) login(w http.ResponseWriter, req *http.Request) {
	var body struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if !readJSON(w, req, &body) {
		return
	}
	if body.UserID != UserID || body.Password != Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": Token})
}

func (s *Server) services(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]string{
		{"id": "zep-0001", "name": "ZeppelinServer", "status": "started"},
		{"id": ServerID, "name": "ModelHistoryServer", "status": "started"},
	})
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return prefix + "-" + strconv.Itoa(s.nextID)
}

func (s *Server) store(kind string, obj map[string]interface{}, idKey string) {
	if s.objects[kind] == nil {
		s.objects[kind] = map[string]map[string]interface{}{}
	}
	s.objects[kind][obj[idKey].(string)] = obj
}

func (s *Server) crud(r *mux.Router, path, kind, idKey string) {
	r.HandleFunc(path, s.create(kind, idKey)).Methods("POST")
	r.HandleFunc(path+"/{id}", s.get(kind)).Methods("GET")
	r.HandleFunc(path+"/{id}", s.del(kind)).Methods("DELETE")
}

func (s *Server) create(kind, idKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if srv, ok := mux.Vars(req)["server"]; ok && srv != ServerID {
			writeError(w, http.StatusNotFound, "no such server "+srv)
			return
		}
		var obj map[string]interface{}
		if !readJSON(w, req, &obj) {
			return
		}
		s.mtx.Lock()
		defer s.mtx.Unlock()
		obj[idKey] = s.newID(kind)
		if kind == "deployments" {
			obj["deploymentSlug"] = slug(fmt.Sprint(obj["name"]))
			obj["status"] = "Not Deployed"
		}
		s.store(kind, obj, idKey)
		writeJSON(w, http.StatusOK, obj)
	}
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

func (s *Server) get(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s.mtx.Lock()
		defer s.mtx.Unlock()
		obj, ok := s.objects[kind][mux.Vars(req)["id"]]
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, obj)
	}
}

func (s *Server) list(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s.mtx.Lock()
		defer s.mtx.Unlock()
		var objs []map[string]interface{}
		for _, obj := range s.objects[kind] {
			objs = append(objs, obj)
		}
		writeJSON(w, http.StatusOK, objs)
	}
}

func (s *Server) del(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s.mtx.Lock()
		defer s.mtx.Unlock()
		id := mux.Vars(req)["id"]
		if _, ok := s.objects[kind][id]; !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		delete(s.objects[kind], id)
		w.WriteHeader(http.StatusNoContent)
	}
}
