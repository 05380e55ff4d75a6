// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package storage

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// maxUploadSize caps the size of a single uploaded file.
const maxUploadSize = 8 * 1024 * 1024

// Server exposes a DBStore as an upload host:
//
//	POST /upload?filename=<name>   stores the request body under name
//	GET  /<name>                   returns a stored file
type Server struct {
	store *DBStore
}

// NewServer creates an upload host handler. Requests from the listed origins
// are allowed cross-origin; "*" allows any origin.
func NewServer(store *DBStore, corsOrigins []string) http.Handler {
	srv := &Server{store: store}
	if len(corsOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}

// ServeHTTP implements http.Handler.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPost && name == "upload":
		srv.handleUpload(w, r)
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		srv.handleGet(w, r, name)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (srv *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if !validName(name) {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadSize {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := srv.store.Put(r.Context(), name, data); err != nil {
		log.Warn("Rejected upload", "name", name, "err", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	log.Debug("Stored upload", "name", name, "size", len(data))
	w.WriteHeader(http.StatusCreated)
	io.WriteString(w, srv.store.URL(name))
}

func (srv *Server) handleGet(w http.ResponseWriter, r *http.Request, name string) {
	if !validName(name) {
		http.NotFound(w, r)
		return
	}
	data, err := srv.store.Get(name)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}
