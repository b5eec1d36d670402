// Package prologue classifies function entry sequences so instrumentation
// consumers can pick a safe attach point past the frame setup.
package prologue

import (
	"errors"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	"kernsig/internal/target"
)

var ErrUnsupportedArch = errors.New("prologue: unsupported architecture")

// Kind names a recognized entry pattern.
type Kind string

const (
	// x86-64 patterns.
	KindFramePointer   Kind = "frame-pointer"    // push rbp
	KindNoFramePointer Kind = "no-frame-pointer" // sub rsp, imm
	KindPushOnly       Kind = "push-only"        // push of a callee-saved reg
	KindLEABased       Kind = "lea-based"

	// AArch64 patterns.
	KindSTPFramePair Kind = "stp-frame-pair" // stp x29, x30, [sp, ...]
	KindSubSP        Kind = "sub-sp"
	KindSTPOnly      Kind = "stp-only"
	KindSTRPreIndex  Kind = "str-preindex"

	KindUnknown Kind = "unknown"
)

// Info is the classification of one function entry.
type Info struct {
	Address      uint64   `json:"address"`
	Name         string   `json:"name"`
	Kind         Kind     `json:"kind"`
	Instructions []string `json:"instructions"`
}

// maxInsts bounds how far into the body we look for the frame setup.
const maxInsts = 4

// Detect decodes the leading instructions of code (the function entry at
// addr) and classifies the prologue. Only the two architectures the
// instrumentation backends support are handled.
func Detect(code []byte, arch target.Arch, addr uint64) (Info, error) {
	info := Info{Address: addr, Kind: KindUnknown}
	switch arch {
	case "x86_64":
		detectAMD64(code, &info)
	case "arm64":
		detectARM64(code, &info)
	default:
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedArch, arch)
	}
	return info, nil
}

func detectAMD64(code []byte, info *Info) {
	off := 0
	for n := 0; n < maxInsts && off < len(code); n++ {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			break
		}
		info.Instructions = append(info.Instructions, x86asm.GNUSyntax(inst, info.Address+uint64(off), nil))
		off += inst.Len

		if info.Kind != KindUnknown {
			continue
		}
		switch inst.Op {
		case x86asm.NOP:
			// padding before the real prologue
		case x86asm.PUSH:
			if r, ok := inst.Args[0].(x86asm.Reg); ok && r == x86asm.RBP {
				info.Kind = KindFramePointer
			} else {
				info.Kind = KindPushOnly
			}
		case x86asm.SUB:
			if r, ok := inst.Args[0].(x86asm.Reg); ok && r == x86asm.RSP {
				info.Kind = KindNoFramePointer
			}
		case x86asm.LEA:
			info.Kind = KindLEABased
		}
	}
}

func detectARM64(code []byte, info *Info) {
	for n := 0; n < maxInsts && (n+1)*4 <= len(code); n++ {
		inst, err := arm64asm.Decode(code[n*4 : n*4+4])
		if err != nil {
			break
		}
		info.Instructions = append(info.Instructions, inst.String())

		if info.Kind != KindUnknown {
			continue
		}
		switch inst.Op {
		case arm64asm.NOP, arm64asm.HINT:
			// BTI landing pads and padding
		case arm64asm.STP:
			if usesReg(inst, arm64asm.X29) {
				info.Kind = KindSTPFramePair
			} else {
				info.Kind = KindSTPOnly
			}
		case arm64asm.SUB:
			if usesReg(inst, arm64asm.SP) {
				info.Kind = KindSubSP
			}
		case arm64asm.STR:
			info.Kind = KindSTRPreIndex
		}
	}
}

func usesReg(inst arm64asm.Inst, reg arm64asm.Reg) bool {
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if r, ok := a.(arm64asm.Reg); ok && r == reg {
			return true
		}
		if r, ok := a.(arm64asm.RegSP); ok && arm64asm.Reg(r) == reg {
			return true
		}
	}
	return false
}
