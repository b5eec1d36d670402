// Package extract correlates walked function definitions against a symbol
// request and builds serializable calling-convention records.
package extract

import (
	"debug/dwarf"
	"fmt"

	"github.com/rs/zerolog"

	"kernsig/internal/dwarfwalk"
	"kernsig/internal/elfx"
	"kernsig/internal/symreq"
)

// Location identifies a node by its byte offset inside the debug-info
// section. Stable across repeated extraction of the same image.
type Location dwarf.Offset

// TypeRef points at a type node elsewhere in the debug-info graph.
// It is emitted unresolved; downstream consumers chase it.
type TypeRef dwarf.Offset

// Param is one named formal parameter, in declaration order.
type Param struct {
	Type TypeRef `json:"type"`
	Name string  `json:"name"`
}

// Subprogram describes one matched function's calling convention.
type Subprogram struct {
	ReturnType *TypeRef `json:"return_type"` // nil when the function returns no value
	Name       string   `json:"name"`
	Params     []Param  `json:"parameters"`
	HasVarargs bool     `json:"has_varargs"`
}

// Correlator filters walker output through a symbol request.
type Correlator struct {
	Log zerolog.Logger
}

// NewCorrelator returns a Correlator that logs nothing.
func NewCorrelator() *Correlator {
	return &Correlator{Log: zerolog.Nop()}
}

// Correlate runs a silent Correlator over the walk.
func Correlate(w *dwarfwalk.Walker, req *symreq.Request) (*Result, error) {
	return NewCorrelator().Run(w, req)
}

// File opens the image at path, runs one extraction pass and closes the
// image again before returning. The Result holds no references into the
// image, so it stays valid after the close.
func (c *Correlator) File(path string, req *symreq.Request) (*Result, error) {
	img, err := elfx.Open(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	w, err := dwarfwalk.Open(img)
	if err != nil {
		return nil, err
	}
	return c.Run(w, req)
}

// Match reports whether node is a concrete definition of a requested
// symbol, returning its name when it is. Abstract inline definitions and
// forward declarations have no executable body here (the defining node is
// elsewhere), so they never match.
func Match(node *dwarf.Entry, req *symreq.Request) (string, bool) {
	if node.AttrField(dwarf.AttrInline) != nil {
		return "", false
	}
	if decl, ok := node.Val(dwarf.AttrDeclaration).(bool); ok && decl {
		return "", false
	}
	name, ok := node.Val(dwarf.AttrName).(string)
	if !ok || !req.Has(name) {
		return "", false
	}
	return name, true
}

// Run consumes the walker and returns the completed mapping. An empty
// mapping is a valid outcome; any malformed node aborts the whole pass
// and no partial result is returned.
func (c *Correlator) Run(w *dwarfwalk.Walker, req *symreq.Request) (*Result, error) {
	res := NewResult()
	for {
		item, err := w.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			break
		}
		node := item.Node
		name, ok := Match(node, req)
		if !ok {
			continue
		}

		sub, err := c.decodeSubprogram(w, node, name)
		if err != nil {
			return nil, err
		}
		res.Subprograms[Location(node.Offset)] = sub
		c.Log.Debug().Str("name", name).Uint64("location", uint64(node.Offset)).
			Int("params", len(sub.Params)).Msg("matched subprogram")
	}
	c.Log.Info().Int("subprograms", len(res.Subprograms)).Msg("correlation complete")
	return res, nil
}

// decodeSubprogram reads one definition node's children into typed fields.
func (c *Correlator) decodeSubprogram(w *dwarfwalk.Walker, node *dwarf.Entry, name string) (Subprogram, error) {
	sub := Subprogram{Name: name, Params: []Param{}}

	children, err := w.Children(node)
	if err != nil {
		return Subprogram{}, err
	}
	for {
		child, err := children.Next()
		if err != nil {
			return Subprogram{}, err
		}
		if child == nil {
			break
		}
		switch child.Tag {
		case dwarf.TagUnspecifiedParameters:
			sub.HasVarargs = true
		case dwarf.TagFormalParameter:
			pname, ok := child.Val(dwarf.AttrName).(string)
			if !ok || pname == "" {
				return Subprogram{}, fmt.Errorf("%w: formal parameter at 0x%x of %q has no name",
					dwarfwalk.ErrMalformedDebugInfo, child.Offset, name)
			}
			ptype, ok := child.Val(dwarf.AttrType).(dwarf.Offset)
			if !ok {
				return Subprogram{}, fmt.Errorf("%w: formal parameter %q at 0x%x of %q has no type",
					dwarfwalk.ErrMalformedDebugInfo, pname, child.Offset, name)
			}
			sub.Params = append(sub.Params, Param{Type: TypeRef(ptype), Name: pname})
		default:
			// lexical blocks, local variables: not part of the signature
		}
	}

	// The return type lives on the definition node itself; a node without
	// a type attribute is a void function, not an error.
	if rt, ok := node.Val(dwarf.AttrType).(dwarf.Offset); ok {
		ref := TypeRef(rt)
		sub.ReturnType = &ref
	}
	return sub, nil
}
