// Package target maps ELF header fields to toolchain target triples and
// kernel build architectures.
package target

import (
	"debug/elf"
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedTarget = errors.New("target: unsupported target")

// Triple is an ABI-qualified toolchain target triple, e.g. "x86_64-linux-gnu".
type Triple string

// Arch is the architecture name used by the kernel build system (ARCH=).
type Arch string

type headerKey struct {
	machine elf.Machine
	class   elf.Class
	data    elf.Data
}

// The eight header combinations a kernel image can legitimately present.
// Anything else is rejected rather than guessed at.
var triples = map[headerKey]Triple{
	{elf.EM_386, elf.ELFCLASS32, elf.ELFDATA2LSB}:     "i686-linux-gnu",
	{elf.EM_MIPS, elf.ELFCLASS32, elf.ELFDATA2MSB}:    "mips-linux-gnu",
	{elf.EM_PPC, elf.ELFCLASS32, elf.ELFDATA2MSB}:     "powerpc-linux-gnu",
	{elf.EM_PPC64, elf.ELFCLASS64, elf.ELFDATA2MSB}:   "powerpc64-linux-gnu",
	{elf.EM_S390, elf.ELFCLASS64, elf.ELFDATA2MSB}:    "s390x-linux-gnu",
	{elf.EM_ARM, elf.ELFCLASS32, elf.ELFDATA2LSB}:     "arm-linux-gnueabi",
	{elf.EM_X86_64, elf.ELFCLASS64, elf.ELFDATA2LSB}:  "x86_64-linux-gnu",
	{elf.EM_AARCH64, elf.ELFCLASS64, elf.ELFDATA2LSB}: "aarch64-linux-gnu",
}

var kernelArches = map[string]Arch{
	"i686":      "i386",
	"mips":      "mips",
	"powerpc":   "powerpc",
	"powerpc64": "powerpc",
	"s390x":     "s390",
	"arm":       "arm",
	"x86_64":    "x86_64",
	"aarch64":   "arm64",
}

// Classify maps an ELF header's (machine, class, data encoding) to its
// target triple. Exact lookup only.
func Classify(machine elf.Machine, class elf.Class, data elf.Data) (Triple, error) {
	t, ok := triples[headerKey{machine, class, data}]
	if !ok {
		return "", fmt.Errorf("%w: machine=%s class=%s data=%s",
			ErrUnsupportedTarget, machine, class, data)
	}
	return t, nil
}

// KernelArchOf maps a triple to the kernel build architecture name,
// keyed by the triple's leading component.
func KernelArchOf(t Triple) (Arch, error) {
	prefix, _, _ := strings.Cut(string(t), "-")
	a, ok := kernelArches[prefix]
	if !ok {
		return "", fmt.Errorf("%w: no kernel arch for triple %q", ErrUnsupportedTarget, t)
	}
	return a, nil
}
