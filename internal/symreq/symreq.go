// Package symreq parses symbol name lists produced by an external scanner.
//
// The expected shape is one symbol per line, either two fields
// ("<hexoffset> <name>") or kallsyms-style three fields
// ("<hexaddr> <type> <name> [module]"). Offsets are carried through for the
// caller; only the distinct names drive extraction.
package symreq

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Entry is one (offset, name) pair from the scanner.
type Entry struct {
	Offset uint64
	Name   string
}

// Request is an ordered symbol list plus its distinct-name set.
type Request struct {
	Entries []Entry
	names   map[string]struct{}
}

// From builds a Request from entries already in memory.
func From(entries []Entry) *Request {
	r := &Request{Entries: entries, names: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		r.names[e.Name] = struct{}{}
	}
	return r
}

// Load reads a symbol list from a file.
func Load(path string) (*Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("symreq: open: %w", err)
	}
	defer f.Close()
	req, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("symreq: %s: %w", path, err)
	}
	return req, nil
}

// Parse reads a symbol list. Blank lines and lines starting with '#' are
// ignored.
func Parse(r io.Reader) (*Request, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		var name string
		switch {
		case len(fields) == 2:
			name = fields[1]
		case len(fields) >= 3 && len(fields[1]) == 1:
			// kallsyms shape: addr type name [module]
			name = fields[2]
		default:
			return nil, fmt.Errorf("line %d: expected \"offset name\" or \"addr type name\", got %q", lineno, line)
		}
		off, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid offset %q: %w", lineno, fields[0], err)
		}
		entries = append(entries, Entry{Offset: off, Name: name})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return From(entries), nil
}

// Has reports whether name is in the distinct-name set.
func (r *Request) Has(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Len returns the number of entries (including duplicate names).
func (r *Request) Len() int { return len(r.Entries) }

// DistinctNames returns the number of distinct names.
func (r *Request) DistinctNames() int { return len(r.names) }
