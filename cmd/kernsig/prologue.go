package main

import (
	"debug/dwarf"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"kernsig/internal/dwarfwalk"
	"kernsig/internal/elfx"
	"kernsig/internal/extract"
	"kernsig/internal/output"
	"kernsig/internal/prologue"
	"kernsig/internal/symreq"
	"kernsig/internal/target"
)

// entryBytes is how much of each function body we read for classification.
const entryBytes = 64

func cmdPrologue(args []string) error {
	fs := pflag.NewFlagSet("prologue", pflag.ExitOnError)
	image := fs.String("image", "", "path to kernel image")
	syms := fs.String("syms", "", "path to symbol list")
	out := fs.String("out", "-", "output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *image == "" || *syms == "" {
		return fmt.Errorf("--image and --syms are required")
	}

	req, err := symreq.Load(*syms)
	if err != nil {
		return err
	}

	img, err := elfx.Open(*image)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer img.Close()

	machine, class, data := img.Header()
	triple, err := target.Classify(machine, class, data)
	if err != nil {
		return err
	}
	arch, err := target.KernelArchOf(triple)
	if err != nil {
		return err
	}

	walker, err := dwarfwalk.Open(img)
	if err != nil {
		return err
	}

	var infos []prologue.Info
	for {
		item, err := walker.Next()
		if err != nil {
			return err
		}
		if item == nil {
			break
		}
		node := item.Node
		name, ok := extract.Match(node, req)
		if !ok {
			continue
		}
		lowpc, ok := node.Val(dwarf.AttrLowpc).(uint64)
		if !ok {
			continue
		}
		code, err := img.ReadBytesAtVA(lowpc, entryBytes)
		if err != nil {
			log.Warn().Err(err).Str("name", name).Msg("entry bytes unreadable, skipping")
			continue
		}
		info, err := prologue.Detect(code, arch, lowpc)
		if err != nil {
			return err
		}
		info.Name = name
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Address < infos[j].Address })

	if err := output.WriteProloguesFile(*out, infos); err != nil {
		return err
	}
	log.Info().Int("functions", len(infos)).Str("arch", string(arch)).Msg("wrote prologue report")
	return nil
}
