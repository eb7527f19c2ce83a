// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers of the page-builder API.
// Handlers are grouped by concern (builder, public, events, account) and
// receive their dependencies through the handler struct.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pagebuilder/internal/engine"
	"pagebuilder/internal/middleware"
	"pagebuilder/internal/store"
)

// maxBodyBytes caps request bodies. Section trees are the largest payloads.
const maxBodyBytes = 2 << 20

// errorBody is the error envelope shared by every endpoint. Errors is either
// a field map (form-style input) or the validator's error list.
type errorBody struct {
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

// fieldErrors maps a request field to its messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

func writeFieldErrors(w http.ResponseWriter, errs fieldErrors) {
	msg := "The given data was invalid."
	if fields := slices.Sorted(maps.Keys(errs)); len(fields) > 0 {
		msg = errs[fields[0]][0]
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: msg, Errors: errs})
}

// writeError maps engine and store errors onto HTTP statuses. Anything it
// does not recognise is logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid *engine.ValidationFailedError
		input   *engine.InputError
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message: "The section tree is invalid.",
			Errors:  invalid.Result.Errors,
		})
	case errors.As(err, &input):
		msg := fmt.Sprintf("The %s %s.", input.Field, input.Message)
		writeFieldErrors(w, fieldErrors{input.Field: {msg}})
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, store.ErrDuplicateHandle):
		writeJSON(w, http.StatusConflict, errorBody{
			Message: "The handle has already been taken.",
			Errors:  fieldErrors{"handle": {"The handle has already been taken."}},
		})
	case errors.Is(err, store.ErrConcurrentModification):
		writeMessage(w, http.StatusConflict, "The structure was changed by another request. Reload and try again.")
	case errors.Is(err, store.ErrAlreadyRegistered):
		writeMessage(w, http.StatusUnprocessableEntity, "You are already registered for this event.")
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromCtx(r.Context()),
			"error", err,
		)
		writeMessage(w, http.StatusInternalServerError, "Server Error")
	}
}

// decode reads a JSON request body into dst. A malformed body is reported
// to the client and false is returned.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body is too large.")
		case errors.Is(err, io.EOF):
			writeMessage(w, http.StatusBadRequest, "Request body is empty.")
		default:
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Malformed JSON: %v", err))
		}
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be omitted.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	return decode(w, r, dst)
}

// idParam parses a positive integer route parameter. It writes 404 and
// returns false when the value is not a valid id.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

// intParam is idParam for small positive integers such as version numbers.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		writeMessage(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return n, true
}

// caller returns the authenticated identity. Routes behind RequireAuth
// always have one; the 401 branch covers misconfigured routing.
func caller(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
	}
	return id, ok
}
