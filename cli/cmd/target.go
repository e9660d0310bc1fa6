package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/cargo"
	"github.com/pithecene-io/cargoexec/cli/render"
)

// TargetResponse is the response for the target command.
type TargetResponse struct {
	Target string `json:"target" yaml:"target"`
	Cargo  string `json:"cargo" yaml:"cargo"`
}

// TargetCommand returns the target command.
// It reports the host triple and cargo executable the other commands use
// by default. It does not invoke cargo.
func TargetCommand() *cli.Command {
	return &cli.Command{
		Name:   "target",
		Usage:  "Show the detected target triple and cargo executable",
		Flags:  OutputFlags(),
		Action: targetAction,
	}
}

func targetAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}
	return r.Render(TargetResponse{
		Target: cargo.CurrentTarget(),
		Cargo:  cargo.Bin(),
	})
}
