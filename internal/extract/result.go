package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Result is the completed location → Subprogram mapping. Built by one
// correlation pass, immutable afterwards, consumed once by serialization.
type Result struct {
	Subprograms map[Location]Subprogram
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{Subprograms: make(map[Location]Subprogram)}
}

// Locations returns the mapping's keys in ascending numeric order.
func (r *Result) Locations() []Location {
	locs := make([]Location, 0, len(r.Subprograms))
	for loc := range r.Subprograms {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// MarshalJSON encodes the mapping with decimal string keys in ascending
// numeric order, so the same Result always produces the same bytes
// regardless of map iteration order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, loc := range r.Locations() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(strconv.FormatUint(uint64(loc), 10))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Subprograms[loc])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the mapping form produced by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]Subprogram
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Subprograms = make(map[Location]Subprogram, len(raw))
	for k, v := range raw {
		loc, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return fmt.Errorf("extract: bad location key %q: %w", k, err)
		}
		r.Subprograms[Location(loc)] = v
	}
	return nil
}
