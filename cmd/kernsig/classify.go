package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"kernsig/internal/elfx"
	"kernsig/internal/target"
)

func cmdClassify(args []string) error {
	fs := pflag.NewFlagSet("classify", pflag.ExitOnError)
	image := fs.String("image", "", "path to kernel image")
	jsonOut := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *image == "" {
		return fmt.Errorf("--image is required")
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

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Target     target.Triple `json:"target"`
			KernelArch target.Arch   `json:"kernel_arch"`
		}{triple, arch})
	}

	fmt.Printf("target:      %s\n", triple)
	fmt.Printf("kernel arch: %s\n", arch)
	return nil
}
