// Package cli implements the command-line interface of the rgt-idx tools.
//
// Each tool exists as a standalone command (rgt-idx-make, rgt-idx-sort,
// rgt-idx-vrfy, rgt-idx-apply) and as a subcommand of rgt-idx. Positional
// arguments name inputs and outputs; "-" or an omitted argument selects the
// standard stream.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/eunmann/rgt-idx/internal/logctx"
	"github.com/eunmann/rgt-idx/pkg/logging"
	"github.com/eunmann/rgt-idx/pkg/rgterr"
	"github.com/eunmann/rgt-idx/pkg/streamio"
)

// Tool names, used as command names and diagnostic prefixes.
const (
	ToolMake  = "rgt-idx-make"
	ToolSort  = "rgt-idx-sort"
	ToolVrfy  = "rgt-idx-vrfy"
	ToolApply = "rgt-idx-apply"
	ToolAll   = "rgt-idx"
)

// Streams are the standard streams a command reads and writes.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Main runs tool with args against the process streams and returns the exit code.
func Main(tool string, args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return Execute(ctx, tool, args, Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}

// Execute runs tool with args and returns the exit code: 0 on success,
// 1 on any failure. Failures print one diagnostic line prefixed with the
// tool name; usage errors also print the usage text.
func Execute(ctx context.Context, tool string, args []string, s Streams) int {
	cmd, err := NewCommand(tool)
	if err != nil {
		fmt.Fprintf(s.Err, "%s: %v\n", tool, err)
		return 1
	}
	cmd.SetArgs(args)
	cmd.SetIn(s.In)
	cmd.SetOut(s.Out)
	cmd.SetErr(s.Err)

	failed, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(s.Err, "%s: %v\n", failed.CommandPath(), err)
	kind := rgterr.KindOf(err)
	if kind == rgterr.ErrUsage {
		fmt.Fprint(s.Err, failed.UsageString())
	}
	logger := logctx.FromContext(failed.Context())
	logger.Debug().Err(err).Str("kind", kindName(kind)).Msg("command failed")
	return 1
}

func kindName(kind error) string {
	if kind == nil {
		return "other"
	}
	return kind.Error()
}

// NewCommand returns the command for a tool name.
func NewCommand(tool string) (*cobra.Command, error) {
	switch tool {
	case ToolMake:
		return newRoot(newMakeCommand(ToolMake)), nil
	case ToolSort:
		return newRoot(newSortCommand(ToolSort)), nil
	case ToolVrfy:
		return newRoot(newVrfyCommand(ToolVrfy)), nil
	case ToolApply:
		return newRoot(newApplyCommand(ToolApply)), nil
	case ToolAll:
		root := newRoot(&cobra.Command{
			Use:   ToolAll,
			Short: "Build, sort, verify and apply raw log timestamp indexes",
			Args:  subcommand,
			RunE:  func(*cobra.Command, []string) error { return nil },
		})
		root.AddCommand(
			newMakeCommand("make"),
			newSortCommand("sort"),
			newVrfyCommand("vrfy"),
			newApplyCommand("apply"),
		)
		return root, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

// globalFlags are the logging flags accepted by every tool.
type globalFlags struct {
	verbose bool
	debug   bool
	human   bool
}

// newRoot configures cmd as a top-level command: logging flags, logger
// setup and cobra's own error printing turned off in favour of Execute's.
func newRoot(cmd *cobra.Command) *cobra.Command {
	var g globalFlags
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.CompletionOptions.DisableDefaultCmd = true

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log a completion event for the run")
	pf.BoolVar(&g.debug, "debug", false, "enable debug logging, including progress")
	pf.BoolVar(&g.human, "human", false, "human-friendly console log output")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		logging.InitWriter(c.ErrOrStderr(), logging.LevelFor(g.verbose, g.debug), g.human)
		ctx := logctx.WithLogger(c.Context(), logging.WithTool(c.CommandPath()))
		c.SetContext(ctx)
		return nil
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageWrap("parse flags", err)
	})
	return cmd
}

// subcommand rejects a combined invocation that names no known subcommand.
// Known subcommands are resolved by cobra before arguments are validated.
func subcommand(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}
	return usageError(fmt.Sprintf("unknown command %q", args[0]))
}

// positional validates between lo and hi path arguments, none empty.
func positional(lo, hi int, names ...string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < lo {
			return usageError("missing " + names[len(args)])
		}
		if len(args) > hi {
			return usageError(fmt.Sprintf("too many arguments: got %d, want at most %d", len(args), hi))
		}
		for i, a := range args {
			if a == "" {
				return usageError("empty " + names[i])
			}
		}
		return nil
	}
}

// arg returns the i-th positional argument or the standard stream.
func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return streamio.StdStream
}

// closeInto closes c and records its error in *err unless one is already set.
func closeInto(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
