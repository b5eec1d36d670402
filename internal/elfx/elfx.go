// Package elfx provides ELF loading helpers for kernel images.
package elfx

import (
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrNotELF    = errors.New("elfx: not an ELF file")
	ErrNoSegment = errors.New("elfx: no PT_LOAD segment covers address")
)

// Image wraps a debug/elf.File opened from a kernel image (vmlinux or a
// relocatable build object) with convenience methods for introspection.
type Image struct {
	ELF  *elf.File
	file *os.File
	size int64
}

// Open opens a kernel image. Header validation is the caller's job
// (see the target package); Open only requires a well-formed ELF.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("elfx: stat: %w", err)
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}

	return &Image{ELF: ef, file: f, size: info.Size()}, nil
}

// Close releases the underlying file. elf.File.Close is a no-op for files
// built with elf.NewFile, so the os.File must be closed explicitly.
func (i *Image) Close() error {
	err := i.ELF.Close()
	if cerr := i.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// FileSize returns the size of the underlying file.
func (i *Image) FileSize() int64 { return i.size }

// Header returns the header fields that identify the image's target:
// machine type, class (word size) and data encoding (byte order).
func (i *Image) Header() (elf.Machine, elf.Class, elf.Data) {
	return i.ELF.Machine, i.ELF.Class, i.ELF.Data
}

// DWARF decodes the image's debug information. For unlinked relocatable
// objects (ET_REL) the underlying decoder applies section relocations to
// the debug sections before parsing, so address-valued attributes are
// meaningful even in pre-link build artifacts.
func (i *Image) DWARF() (*dwarf.Data, error) {
	return i.ELF.DWARF()
}

// VAToFileOffset converts a virtual address to a file offset using PT_LOAD segments.
func (i *Image) VAToFileOffset(va uint64) (uint64, error) {
	for _, p := range i.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if va >= p.Vaddr && va < p.Vaddr+p.Memsz {
			offset := va - p.Vaddr + p.Off
			if offset >= uint64(i.size) {
				return 0, fmt.Errorf("elfx: VA 0x%x maps to offset 0x%x beyond file size 0x%x", va, offset, i.size)
			}
			return offset, nil
		}
	}
	return 0, fmt.Errorf("%w: VA 0x%x", ErrNoSegment, va)
}

// ReadBytesAtVA reads up to n bytes starting at the given virtual address.
func (i *Image) ReadBytesAtVA(va uint64, n int) ([]byte, error) {
	off, err := i.VAToFileOffset(va)
	if err != nil {
		return nil, err
	}
	// Clamp to file size.
	avail := i.size - int64(off)
	if avail <= 0 {
		return nil, fmt.Errorf("elfx: offset 0x%x at or past end of file", off)
	}
	if int64(n) > avail {
		n = int(avail)
	}
	buf := make([]byte, n)
	_, err = i.file.ReadAt(buf, int64(off))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("elfx: read at 0x%x: %w", off, err)
	}
	return buf, nil
}

// ByteOrder returns the image's byte order.
func (i *Image) ByteOrder() binary.ByteOrder {
	return i.ELF.ByteOrder
}
