package main

import (
	"fmt"

	"github.com/loomwork/loom/config"
)

// ValidateCmd loads a team definition and reports whether it is
// well-formed, without building or running anything.
type ValidateCmd struct {
	Config string `short:"c" required:"" help:"Path to the team definition YAML file."`
}

func (c *ValidateCmd) Run() error {
	cfg, err := config.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %q has %d agent(s) and %d task(s)\n", cfg.Name, len(cfg.Agents), len(cfg.Tasks))
	return nil
}
