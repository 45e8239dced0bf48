// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package impl

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
	"github.com/google/bootchain/api"
	"github.com/gorilla/mux"
)

// Server serves the outcome of a boot.
type Server struct {
	st *Status
}

// NewServer creates a server for st, which mustn't change afterwards.
func NewServer(st *Status) *Server {
	return &Server{st: st}
}

// ledgerEntry adds the error text, which api.LedgerEntry doesn't marshal.
type ledgerEntry struct {
	api.LedgerEntry
	Error string `json:",omitempty"`
}

type summary struct {
	Board   string
	Strap   uint32
	Devices []api.BootDevice
	Booted  bool
	Error   string `json:",omitempty"`
}

// RegisterHandlers registers HTTP handlers for the diagnostics endpoints.
func (s *Server) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/", s.getSummary).Methods("GET")
	r.HandleFunc("/ledger", s.getLedger).Methods("GET")
	r.HandleFunc("/handoff", s.getHandoff).Methods("GET")
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	sum := summary{Board: s.st.Board, Strap: s.st.Strap, Devices: s.st.Devices, Booted: s.st.Err == nil}
	if s.st.Err != nil {
		sum.Error = s.st.Err.Error()
	}
	writeJSON(w, sum)
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	entries := make([]ledgerEntry, 0, len(s.st.Result.Ledger))
	for _, e := range s.st.Result.Ledger {
		le := ledgerEntry{LedgerEntry: e}
		if e.Err != nil {
			le.Error = e.Err.Error()
		}
		entries = append(entries, le)
	}
	writeJSON(w, entries)
}

func (s *Server) getHandoff(w http.ResponseWriter, r *http.Request) {
	if s.st.Result.Record.Size == 0 {
		http.Error(w, "nothing was booted", http.StatusNotFound)
		return
	}
	writeJSON(w, s.st.Result.Record)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("json.Marshal(): %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil {
		glog.Errorf("w.Write(): %v", err)
	}
}
