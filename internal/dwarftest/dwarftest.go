// Package dwarftest assembles tiny DWARF sections in memory so walker and
// correlator behavior can be exercised against the real debug/dwarf decoder
// without shipping binary fixtures.
package dwarftest

import (
	"bytes"
	"debug/dwarf"
	"encoding/binary"
	"fmt"
)

// Form is the subset of DWARF attribute forms the builder knows how to emit.
type Form int

const (
	FormString Form = iota // inline NUL-terminated string
	FormRef4               // 4-byte unit-relative reference
	FormUdata              // ULEB128 constant
	FormFlagPresent        // implicit true flag
	FormAddr               // 8-byte address
)

// Attr is one attribute of a DIE.
type Attr struct {
	ID   dwarf.Attr
	Form Form
	Val  any
}

// DIE is one node of the tree to assemble.
type DIE struct {
	Tag      dwarf.Tag
	Attrs    []Attr
	Children []*DIE
}

// Node builds a DIE.
func Node(tag dwarf.Tag, attrs []Attr, children ...*DIE) *DIE {
	return &DIE{Tag: tag, Attrs: attrs, Children: children}
}

// Name returns a DW_AT_name attribute.
func Name(s string) Attr { return Attr{dwarf.AttrName, FormString, s} }

// TypeRef returns a DW_AT_type reference. With a single compilation unit
// the encoded value equals the section offset the decoder reports.
func TypeRef(off uint32) Attr { return Attr{dwarf.AttrType, FormRef4, off} }

// Inline returns a DW_AT_inline attribute (1 = inlined).
func Inline(v uint64) Attr { return Attr{dwarf.AttrInline, FormUdata, v} }

// Declaration returns a DW_AT_declaration flag.
func Declaration() Attr { return Attr{dwarf.AttrDeclaration, FormFlagPresent, nil} }

// LowPC returns a DW_AT_low_pc address.
func LowPC(addr uint64) Attr { return Attr{dwarf.AttrLowpc, FormAddr, addr} }

// CompileUnit builds a unit root.
func CompileUnit(name string, children ...*DIE) *DIE {
	return Node(dwarf.TagCompileUnit, []Attr{Name(name)}, children...)
}

// Subprogram builds a function definition node.
func Subprogram(name string, extra []Attr, children ...*DIE) *DIE {
	return Node(dwarf.TagSubprogram, append([]Attr{Name(name)}, extra...), children...)
}

// FormalParam builds a named formal parameter.
func FormalParam(name string, typ uint32) *DIE {
	return Node(dwarf.TagFormalParameter, []Attr{Name(name), TypeRef(typ)})
}

// UnnamedParam builds a formal parameter carrying only a type.
func UnnamedParam(typ uint32) *DIE {
	return Node(dwarf.TagFormalParameter, []Attr{TypeRef(typ)})
}

// Varargs builds an unspecified-parameters marker.
func Varargs() *DIE {
	return Node(dwarf.TagUnspecifiedParameters, nil)
}

// BuildSections assembles raw .debug_abbrev and .debug_info contents for
// the given compilation units (little-endian, DWARF v4, 8-byte addresses).
func BuildSections(units ...*DIE) (abbrev, info []byte, err error) {
	b := &builder{abbrevs: make(map[string]uint64)}
	for _, u := range units {
		if u.Tag != dwarf.TagCompileUnit {
			return nil, nil, fmt.Errorf("dwarftest: top-level DIE must be a compile unit, got %s", u.Tag)
		}
		b.collect(u)
	}
	b.abbrev.WriteByte(0) // table terminator

	for _, u := range units {
		var body bytes.Buffer
		writeUint16(&body, 4) // version
		writeUint32(&body, 0) // abbrev table offset
		body.WriteByte(8)     // address size
		if err := b.encode(&body, u); err != nil {
			return nil, nil, err
		}
		writeUint32(&b.info, uint32(body.Len())) // unit_length
		b.info.Write(body.Bytes())
	}
	return b.abbrev.Bytes(), b.info.Bytes(), nil
}

// Build assembles the sections and decodes them with debug/dwarf.
func Build(units ...*DIE) (*dwarf.Data, error) {
	abbrev, info, err := BuildSections(units...)
	if err != nil {
		return nil, err
	}
	return dwarf.New(abbrev, nil, nil, info, nil, nil, nil, nil)
}

// MustBuild is Build for test setup that cannot reasonably fail.
func MustBuild(units ...*DIE) *dwarf.Data {
	d, err := Build(units...)
	if err != nil {
		panic(err)
	}
	return d
}

type builder struct {
	abbrevs map[string]uint64
	abbrev  bytes.Buffer
	info    bytes.Buffer
}

func formCode(f Form) uint64 {
	switch f {
	case FormString:
		return 0x08
	case FormRef4:
		return 0x13
	case FormUdata:
		return 0x0f
	case FormFlagPresent:
		return 0x19
	case FormAddr:
		return 0x01
	}
	panic("dwarftest: unknown form")
}

func (b *builder) signature(d *DIE) string {
	var sb bytes.Buffer
	fmt.Fprintf(&sb, "%d/%t", d.Tag, len(d.Children) > 0)
	for _, a := range d.Attrs {
		fmt.Fprintf(&sb, ";%d:%d", a.ID, a.Form)
	}
	return sb.String()
}

// collect assigns an abbreviation code to every distinct DIE shape and
// emits the abbreviation table entries in first-encounter order.
func (b *builder) collect(d *DIE) {
	sig := b.signature(d)
	if _, ok := b.abbrevs[sig]; !ok {
		code := uint64(len(b.abbrevs) + 1)
		b.abbrevs[sig] = code
		writeULEB(&b.abbrev, code)
		writeULEB(&b.abbrev, uint64(d.Tag))
		if len(d.Children) > 0 {
			b.abbrev.WriteByte(1) // DW_CHILDREN_yes
		} else {
			b.abbrev.WriteByte(0)
		}
		for _, a := range d.Attrs {
			writeULEB(&b.abbrev, uint64(a.ID))
			writeULEB(&b.abbrev, formCode(a.Form))
		}
		writeULEB(&b.abbrev, 0)
		writeULEB(&b.abbrev, 0)
	}
	for _, c := range d.Children {
		b.collect(c)
	}
}

func (b *builder) encode(w *bytes.Buffer, d *DIE) error {
	writeULEB(w, b.abbrevs[b.signature(d)])
	for _, a := range d.Attrs {
		switch a.Form {
		case FormString:
			w.WriteString(a.Val.(string))
			w.WriteByte(0)
		case FormRef4:
			writeUint32(w, a.Val.(uint32))
		case FormUdata:
			writeULEB(w, a.Val.(uint64))
		case FormFlagPresent:
			// no storage
		case FormAddr:
			writeUint64(w, a.Val.(uint64))
		default:
			return fmt.Errorf("dwarftest: unknown form %d", a.Form)
		}
	}
	if len(d.Children) > 0 {
		for _, c := range d.Children {
			if err := b.encode(w, c); err != nil {
				return err
			}
		}
		writeULEB(w, 0) // null entry closes child list
	}
	return nil
}

func writeULEB(w *bytes.Buffer, v uint64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		w.WriteByte(c)
		if v == 0 {
			return
		}
	}
}

func writeUint16(w *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.Write(buf[:])
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

func writeUint64(w *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}
