// Package output writes kernsig extraction results to files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"kernsig/internal/extract"
	"kernsig/internal/prologue"
)

// Document is the top-level shape of the subprograms artifact.
type Document struct {
	Subprograms *extract.Result `json:"subprograms"`
}

// MarshalSubprograms renders the result as indented JSON. Byte-for-byte
// deterministic for a given result: locations are emitted in ascending
// numeric order regardless of map iteration order.
func MarshalSubprograms(res *extract.Result) ([]byte, error) {
	return json.MarshalIndent(Document{Subprograms: res}, "", "  ")
}

// WriteSubprograms writes the subprograms document to w.
func WriteSubprograms(w io.Writer, res *extract.Result) error {
	data, err := MarshalSubprograms(res)
	if err != nil {
		return fmt.Errorf("output: encode subprograms: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("output: write subprograms: %w", err)
	}
	return nil
}

// WriteSubprogramsFile writes the subprograms document to path,
// or to stdout when path is "-".
func WriteSubprogramsFile(path string, res *extract.Result) error {
	if path == "-" {
		return WriteSubprograms(os.Stdout, res)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteSubprograms(f, res); err != nil {
		return err
	}
	return f.Sync()
}

// ReadSubprograms parses a document previously produced by WriteSubprograms.
func ReadSubprograms(r io.Reader) (*extract.Result, error) {
	var doc Document
	doc.Subprograms = extract.NewResult()
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("output: decode subprograms: %w", err)
	}
	return doc.Subprograms, nil
}

// WriteProloguesFile writes the prologue report to path, or stdout for "-".
// Entries are expected in the caller's (already sorted) order.
func WriteProloguesFile(path string, infos []prologue.Info) error {
	if infos == nil {
		infos = []prologue.Info{}
	}
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("output: create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(infos); err != nil {
		return fmt.Errorf("output: encode prologues: %w", err)
	}
	return nil
}
