package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"kernsig/internal/extract"
	"kernsig/internal/output"
	"kernsig/internal/symreq"
)

func cmdExtract(args []string) error {
	fs := pflag.NewFlagSet("extract", pflag.ExitOnError)
	image := fs.String("image", "", "path to kernel image")
	syms := fs.String("syms", "", "path to symbol list")
	out := fs.String("out", "-", "output file, - for stdout")
	verbose := fs.Bool("verbose", false, "per-node debug logging")
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
	log.Info().Int("entries", req.Len()).Int("distinct", req.DistinctNames()).
		Str("syms", *syms).Msg("loaded symbol request")

	corr := extract.NewCorrelator()
	corr.Log = log.Logger
	if *verbose {
		corr.Log = log.Logger.Level(zerolog.DebugLevel)
	}

	res, err := corr.File(*image, req)
	if err != nil {
		return err
	}

	if err := output.WriteSubprogramsFile(*out, res); err != nil {
		return err
	}
	log.Info().Int("subprograms", len(res.Subprograms)).Str("out", *out).Msg("wrote signatures")
	return nil
}
