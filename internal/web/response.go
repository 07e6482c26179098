// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/samber/oops"
)

// maxBodyBytes bounds request bodies; every accepted body is a small JSON object.
const maxBodyBytes = 64 << 10

// Response messages. Internal error text never reaches the client.
const (
	statusSuccessful = "successful"
	statusError      = "error"

	msgUnauthorized       = "unauthorized"
	msgInvalidCredentials = "invalid username or password"
	msgUnavailable        = "service unavailable"
	msgBadRequest         = "invalid request body"
	msgInvalidInput       = "invalid input"
	msgConflict           = "account already exists"
)

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func successBody() statusResponse {
	return statusResponse{Status: statusSuccessful}
}

func errorBody(msg string) statusResponse {
	return statusResponse{Status: statusError, Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a single JSON object from r into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return oops.Code("HTTP_BAD_REQUEST").With("operation", "decode request body").Wrap(err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return oops.Code("HTTP_BAD_REQUEST").Errorf("request body must contain a single JSON object")
	}
	return nil
}
