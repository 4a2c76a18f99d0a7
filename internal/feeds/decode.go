// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
)

// flexFloat decodes a JSON number or a numeric string. Vendor feeds are
// inconsistent about which they send for coordinates.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		// Unparseable coordinates become the zero value, which the
		// coordinate validator rejects downstream.
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexString decodes a JSON string, number, or null into a string. Used
// for native IDs, which some agencies serve as bare integers.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}
