package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
	"github.com/zihong/dfgprop/src/compiler/propagate"
)

func main() {
	runCmd := &cli.Command{
		Name:   "run",
		Action: runAct,
		Args:   cli.Args{},
	}

	dumpCmd := &cli.Command{
		Name:   "dump",
		Action: dumpAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "dfgprop",
		Description: "dfgprop runs the DFG-style local optimization pipeline over a text graph",
		Commands: []*cli.Command{
			runCmd,
			dumpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

// runAct loads each file, runs Propagate over it, and dumps the graph
// before and after — the analogue of cmd/slow's compile subcommand.
func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		g, cb, gd, err := loadPath(a)
		if err != nil {
			return errors.Wrap(err, "run %v", a)
		}

		os.Stdout.WriteString("-- before --\n")
		dumpGraph(os.Stdout, g)

		if err := propagate.Propagate(ctx, g, cb, gd, propagate.Options{Debug: true}); err != nil {
			return errors.Wrap(err, "propagate %v", a)
		}

		os.Stdout.WriteString("-- after --\n")
		dumpGraph(os.Stdout, g)
	}

	return nil
}

// dumpAct loads each file and prints it back out unchanged, useful for
// checking the text format parses the way its author intended.
func dumpAct(c *cli.Command) (err error) {
	for _, a := range c.Args {
		g, _, _, err := loadPath(a)
		if err != nil {
			return errors.Wrap(err, "dump %v", a)
		}
		dumpGraph(os.Stdout, g)
	}

	return nil
}

func loadPath(path string) (*graph.Graph, *collab.CodeBlock, *collab.GlobalData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	return loadGraph(f)
}
