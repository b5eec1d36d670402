// Package dwarfwalk streams top-level function definitions out of an
// image's DWARF data.
package dwarfwalk

import (
	"debug/dwarf"
	"errors"
	"fmt"

	"kernsig/internal/elfx"
)

var ErrMalformedDebugInfo = errors.New("dwarfwalk: malformed debug info")

// Item is one subprogram definition found as a direct child of a
// compilation unit root.
type Item struct {
	Unit *dwarf.Entry // enclosing compilation unit root
	Node *dwarf.Entry // the subprogram entry
}

// Walker iterates compilation units in section order and yields their
// direct subprogram children. It holds no buffered state beyond the
// current cursor, so images with thousands of units stream in constant
// memory.
type Walker struct {
	d    *dwarf.Data
	r    *dwarf.Reader
	unit *dwarf.Entry
}

// New builds a Walker over already-decoded DWARF data.
func New(d *dwarf.Data) *Walker {
	return &Walker{d: d, r: d.Reader()}
}

// Open decodes the image's debug info and builds a Walker over it.
// A missing or unparseable debug-info section is ErrMalformedDebugInfo.
func Open(img *elfx.Image) (*Walker, error) {
	d, err := img.DWARF()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDebugInfo, err)
	}
	return New(d), nil
}

// Next returns the next subprogram definition, or nil at end of data.
// The walker looks only at direct children of each unit root; nested
// scopes are skipped wholesale, as are non-subprogram siblings
// (variables, types).
func (w *Walker) Next() (*Item, error) {
	for {
		e, err := w.r.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDebugInfo, err)
		}
		if e == nil {
			return nil, nil
		}
		switch e.Tag {
		case dwarf.TagCompileUnit:
			w.unit = e
		case 0:
			// null entry closing the current unit's child list
		case dwarf.TagSubprogram:
			item := &Item{Unit: w.unit, Node: e}
			w.r.SkipChildren()
			return item, nil
		default:
			w.r.SkipChildren()
		}
	}
}

// Children iterates the direct children of a node previously yielded by
// Next. It runs on a separate cursor, so it does not disturb the walk.
func (w *Walker) Children(node *dwarf.Entry) (*ChildIter, error) {
	if !node.Children {
		return &ChildIter{}, nil
	}
	r := w.d.Reader()
	r.Seek(node.Offset)
	if _, err := r.Next(); err != nil {
		return nil, fmt.Errorf("%w: reseek node at 0x%x: %v", ErrMalformedDebugInfo, node.Offset, err)
	}
	return &ChildIter{r: r}, nil
}

// ChildIter yields the direct children of one node.
type ChildIter struct {
	r    *dwarf.Reader
	done bool
}

// Next returns the next direct child, or nil when the child list ends.
func (c *ChildIter) Next() (*dwarf.Entry, error) {
	if c.done || c.r == nil {
		return nil, nil
	}
	e, err := c.r.Next()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDebugInfo, err)
	}
	if e == nil || e.Tag == 0 {
		c.done = true
		return nil, nil
	}
	// Do not descend into grandchildren.
	c.r.SkipChildren()
	return e, nil
}
