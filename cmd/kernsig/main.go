package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kernsig/internal/dwarfwalk"
	"kernsig/internal/target"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "classify":
		err = cmdClassify(os.Args[2:])
	case "extract":
		err = cmdExtract(os.Args[2:])
	case "prologue":
		err = cmdPrologue(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Error().Err(err).Msg("failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto distinct process exit codes so
// build orchestration can tell "wrong image" from "broken debug info".
func exitCode(err error) int {
	switch {
	case errors.Is(err, target.ErrUnsupportedTarget):
		return 2
	case errors.Is(err, dwarfwalk.ErrMalformedDebugInfo):
		return 3
	default:
		return 1
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `kernsig - kernel image signature extractor

Usage:
  kernsig classify --image <path> [--json]                 Identify target triple and kernel arch
  kernsig extract  --image <path> --syms <file> --out <file>  Extract subprogram signatures from DWARF
  kernsig prologue --image <path> --syms <file> --out <file>  Classify function entry prologues

Flags:
  --image <path>     Path to vmlinux or kernel build object
  --syms <file>      Symbol list: "<hexoffset> <name>" or kallsyms lines
  --out <file>       Output file ("-" for stdout)
  --json             JSON output (classify)
  --verbose          Per-node debug logging (extract)
`)
}
