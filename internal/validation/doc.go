// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a
// thread-safe singleton validator instance with user-friendly error
// messages. It integrates with the application's API error format for
// consistent error responses.
//
// # Quick Start
//
//	type camerasRequest struct {
//	    Search string `validate:"omitempty,max=100"`
//	    State  string `validate:"omitempty,max=32"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    req := camerasRequest{
//	        Search: r.URL.Query().Get("search"),
//	        State:  r.URL.Query().Get("state"),
//	    }
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: field must not be empty
//   - min=n / max=n: length bounds in characters
//   - url: valid URL format
//
// Numeric validations:
//   - gte=n, lte=n, gt=n, lt=n, min=n, max=n
//
// Enum validations:
//   - oneof=a b c: must be one of the specified values
//
// Coordinate validations:
//   - latitude: valid latitude (-90 to 90)
//   - longitude: valid longitude (-180 to 180)
//
// # API Error Integration
//
// ToAPIError produces errors matching the application format:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Search must be at most 100 characters",
//	    "details": {"field": "Search", "tag": "max", "value": "..."}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Search: must be at most 100 characters; State: must be at most 32 characters",
//	    "details": {"fields": [...]}
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use.
// It caches struct reflection information, so the first validation of a
// type pays the reflection cost and later calls are cheap.
package validation
