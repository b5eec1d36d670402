package dwarftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
)

// WriteImage writes a minimal 64-bit little-endian x86-64 ELF executable
// containing the given debug sections. Pass nil sections to produce an
// image with no debug info at all. The image carries one PT_LOAD segment
// mapping the whole file at vaddr 0x400000 so address-based reads work.
func WriteImage(path string, abbrev, info []byte) error {
	const (
		ehsize   = 64
		phentoff = ehsize
		phentlen = 56
		shentlen = 64
		loadVA   = 0x400000
	)

	type sec struct {
		name string
		data []byte
		typ  elf.SectionType
	}
	var secs []sec
	if abbrev != nil || info != nil {
		secs = append(secs,
			sec{".debug_abbrev", abbrev, elf.SHT_PROGBITS},
			sec{".debug_info", info, elf.SHT_PROGBITS},
		)
	}

	// Section name string table, always last.
	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	nameOff := make([]uint32, len(secs)+1)
	for i, s := range secs {
		nameOff[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(s.name)
		shstrtab.WriteByte(0)
	}
	nameOff[len(secs)] = uint32(shstrtab.Len())
	shstrtab.WriteString(".shstrtab")
	shstrtab.WriteByte(0)
	secs = append(secs, sec{".shstrtab", shstrtab.Bytes(), elf.SHT_STRTAB})

	// Lay out section data after headers.
	dataOff := uint64(phentoff + phentlen)
	offs := make([]uint64, len(secs))
	for i, s := range secs {
		offs[i] = dataOff
		dataOff += uint64(len(s.data))
	}
	shoff := dataOff

	var buf bytes.Buffer
	le := binary.LittleEndian

	// ELF header.
	ident := [16]byte{0x7f, 'E', 'L', 'F',
		byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), 1 /* EV_CURRENT */}
	buf.Write(ident[:])
	put16 := func(v uint16) { var b [2]byte; le.PutUint16(b[:], v); buf.Write(b[:]) }
	put32 := func(v uint32) { var b [4]byte; le.PutUint32(b[:], v); buf.Write(b[:]) }
	put64 := func(v uint64) { var b [8]byte; le.PutUint64(b[:], v); buf.Write(b[:]) }

	put16(uint16(elf.ET_EXEC))
	put16(uint16(elf.EM_X86_64))
	put32(1)              // version
	put64(loadVA)         // entry
	put64(phentoff)       // phoff
	put64(shoff)          // shoff
	put32(0)              // flags
	put16(ehsize)         // ehsize
	put16(phentlen)       // phentsize
	put16(1)              // phnum
	put16(shentlen)       // shentsize
	put16(uint16(len(secs) + 1)) // shnum (incl. null entry)
	put16(uint16(len(secs)))     // shstrndx

	// One PT_LOAD covering the whole file.
	fileSize := shoff + uint64(shentlen*(len(secs)+1))
	put32(uint32(elf.PT_LOAD))
	put32(uint32(elf.PF_R | elf.PF_X))
	put64(0)        // offset
	put64(loadVA)   // vaddr
	put64(loadVA)   // paddr
	put64(fileSize) // filesz
	put64(fileSize) // memsz
	put64(0x1000)   // align

	for _, s := range secs {
		buf.Write(s.data)
	}

	// Section header table: null entry first.
	for i := 0; i < shentlen; i++ {
		buf.WriteByte(0)
	}
	for i, s := range secs {
		put32(nameOff[i])
		put32(uint32(s.typ))
		put64(0)                  // flags
		put64(0)                  // addr
		put64(offs[i])            // offset
		put64(uint64(len(s.data))) // size
		put32(0)                  // link
		put32(0)                  // info
		put64(1)                  // addralign
		put64(0)                  // entsize
	}

	if uint64(buf.Len()) != fileSize {
		return fmt.Errorf("dwarftest: layout mismatch: wrote %d, expected %d", buf.Len(), fileSize)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
