package cli

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/eunmann/rgt-idx/internal/logctx"
	"github.com/eunmann/rgt-idx/pkg/idxapply"
	"github.com/eunmann/rgt-idx/pkg/idxbuild"
	"github.com/eunmann/rgt-idx/pkg/idxsort"
	"github.com/eunmann/rgt-idx/pkg/idxverify"
	"github.com/eunmann/rgt-idx/pkg/logging"
	"github.com/eunmann/rgt-idx/pkg/membudget"
	"github.com/eunmann/rgt-idx/pkg/memdiag"
	"github.com/eunmann/rgt-idx/pkg/streamio"
	"github.com/eunmann/rgt-idx/pkg/sysmem"
)

func newMakeCommand(use string) *cobra.Command {
	var widths widthFlags
	cmd := &cobra.Command{
		Use:   use + " [input_log [output_index]]",
		Short: "Build a timestamp index from a raw log",
		Long: `Reads a raw log (plain or zstd-compressed) and writes one 16-byte index
entry per message: the message offset followed by its timestamp.`,
		Args: positional(0, 2, "input_log", "output_index"),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			codec, err := widths.codec(cmd)
			if err != nil {
				return err
			}
			in, err := streamio.OpenLog(arg(args, 0), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeInto(in, &err)
			out, err := streamio.Create(arg(args, 1), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeInto(out, &err)

			ctx := logctx.WithStr(cmd.Context(), "input", in.Name)
			_, err = idxbuild.Build(ctx, in, out, codec)
			return err
		},
	}
	widths.register(cmd)
	return cmd
}

func newSortCommand(use string) *cobra.Command {
	var memBudget string
	cmd := &cobra.Command{
		Use:   use + " [input_index [output_index]]",
		Short: "Sort an index by timestamp",
		Long: `Sorts index entries by timestamp in memory. Entries with equal timestamps
keep their input order. The memory budget covers the data buffer and the
merge buffer; exceeding it fails before sorting.

Memory budget precedence: --mem-budget, then ` + EnvMemBudget + `, then 50% of RAM.`,
		Args: positional(0, 2, "input_index", "output_index"),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			budget, err := determineMemoryBudget(memBudget)
			if err != nil {
				return err
			}
			logger := logctx.FromContext(cmd.Context())
			ev := logger.Debug().
				Str("budget", membudget.FormatBytes(budget.Total())).
				Str("source", string(budget.Source()))
			if budget.Source() == membudget.BudgetSourceAuto50Pct {
				ev = ev.Str("detected_by", sysmem.Total().Method)
			}
			ev.Msg("memory budget")

			in, err := streamio.Open(arg(args, 0), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeInto(in, &err)
			out, err := streamio.Create(arg(args, 1), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeInto(out, &err)

			ctx := logctx.WithStr(cmd.Context(), "input", in.Name)
			ctx = logctx.WithInt64(ctx, "budget_bytes", int64(min(budget.Total(), math.MaxInt64)))
			_, err = idxsort.Run(ctx, in.Reader, out, budget)
			memdiag.LogWithBudget(logctx.FromContext(ctx), "sort", budget)
			return err
		},
	}
	cmd.Flags().StringVar(&memBudget, "mem-budget", "", "memory budget, e.g. 4GiB or 512MB (env "+EnvMemBudget+")")
	return cmd
}

func newVrfyCommand(use string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [input_index]",
		Short: "Check that an index is sorted by timestamp",
		Args:  positional(0, 1, "input_index"),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			in, err := streamio.Open(arg(args, 0), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeInto(in, &err)

			ctx := logctx.WithStr(cmd.Context(), "input", in.Name)
			_, err = idxverify.Verify(ctx, in.Reader)
			return err
		},
	}
}

func newApplyCommand(use string) *cobra.Command {
	var (
		widths   widthFlags
		compress bool
	)
	cmd := &cobra.Command{
		Use:   use + " input_log [input_index [output_log]]",
		Short: "Rewrite a raw log in index order",
		Long: `Copies the messages of input_log in the order given by the index. The log
must be seekable: a regular file, or a file in the seekable zstd format.
With --compress the output is written as seekable zstd.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := positional(1, 3, "input_log", "input_index", "output_log")(cmd, args); err != nil {
				return err
			}
			if args[0] == streamio.StdStream && arg(args, 1) == streamio.StdStream {
				return usageError("input_log and input_index cannot both be standard input")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			codec, err := widths.codec(cmd)
			if err != nil {
				return err
			}
			log, err := streamio.OpenSeekableLog(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeInto(log, &err)
			index, err := streamio.Open(arg(args, 1), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeInto(index, &err)

			create, format := streamio.Create, "raw"
			if compress {
				create, format = streamio.CreateCompressed, "seekable-zstd"
			}
			out, err := create(arg(args, 2), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeInto(out, &err)

			ctx := logctx.WithStr(cmd.Context(), "input", log.Name)
			stats, err := idxapply.Apply(ctx, log, index.Reader, out, codec)
			if err != nil {
				return err
			}
			if out.Name != streamio.StdStream {
				logging.FileCreated(logctx.FromContext(ctx), "apply", stats.Duration).
					Str("file", out.Name).
					Str("format", format).
					Bytes("log_bytes", stats.OutBytes).
					Log("log written")
			}
			return nil
		},
	}
	widths.register(cmd)
	cmd.Flags().BoolVar(&compress, "compress", false, "write the output log as seekable zstd")
	return cmd
}
