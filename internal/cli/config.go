package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eunmann/rgt-idx/pkg/membudget"
	"github.com/eunmann/rgt-idx/pkg/rawlog"
	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// Environment variables consulted when the matching flag is not given.
const (
	EnvMemBudget  = "RGT_IDX_MEM_BUDGET"
	EnvNFLWidth   = "RGT_LOG_NFL_WIDTH"
	EnvLevelWidth = "RGT_LOG_LEVEL_WIDTH"
	EnvIDWidth    = "RGT_LOG_ID_WIDTH"
)

// determineMemoryBudget resolves the sort memory budget:
// CLI flag, then environment, then 50% of system RAM.
func determineMemoryBudget(cliFlag string) (*membudget.Budget, error) {
	if cliFlag != "" {
		n, err := membudget.ParseHumanSize(cliFlag)
		if err != nil {
			return nil, usageWrap(fmt.Sprintf("invalid --mem-budget %q", cliFlag), err)
		}
		return membudget.New(membudget.Config{TotalBytes: n, Source: membudget.BudgetSourceCLI}), nil
	}
	if v := os.Getenv(EnvMemBudget); v != "" {
		n, err := membudget.ParseHumanSize(v)
		if err != nil {
			return nil, usageWrap(fmt.Sprintf("invalid %s %q", EnvMemBudget, v), err)
		}
		return membudget.New(membudget.Config{TotalBytes: n, Source: membudget.BudgetSourceEnv}), nil
	}
	return membudget.NewFromSystemRAM(), nil
}

// widthFlags holds the codec width flags shared by make and apply.
type widthFlags struct {
	nfl, level, id int
}

func (w *widthFlags) register(cmd *cobra.Command) {
	def := rawlog.DefaultConfig()
	f := cmd.Flags()
	f.IntVar(&w.nfl, "nfl-width", def.NFLWidth, "field length width in bytes (1, 2 or 4; env "+EnvNFLWidth+")")
	f.IntVar(&w.level, "level-width", def.LevelWidth, "level width in bytes (1, 2 or 4; env "+EnvLevelWidth+")")
	f.IntVar(&w.id, "id-width", def.IDWidth, "id width in bytes (1, 2 or 4; env "+EnvIDWidth+")")
}

// codec resolves each width from its flag, then its environment variable,
// then the default, and builds the codec.
func (w *widthFlags) codec(cmd *cobra.Command) (*rawlog.Codec, error) {
	cfg := rawlog.Config{}
	var err error
	if cfg.NFLWidth, err = resolveWidth(cmd, "nfl-width", w.nfl, EnvNFLWidth); err != nil {
		return nil, err
	}
	if cfg.LevelWidth, err = resolveWidth(cmd, "level-width", w.level, EnvLevelWidth); err != nil {
		return nil, err
	}
	if cfg.IDWidth, err = resolveWidth(cmd, "id-width", w.id, EnvIDWidth); err != nil {
		return nil, err
	}
	codec, err := rawlog.NewCodec(cfg)
	if err != nil {
		return nil, usageWrap("codec configuration", err)
	}
	return codec, nil
}

func resolveWidth(cmd *cobra.Command, flag string, val int, env string) (int, error) {
	if cmd.Flags().Changed(flag) {
		return val, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return val, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usageWrap(fmt.Sprintf("invalid %s %q", env, v), err)
	}
	return n, nil
}

func usageWrap(op string, err error) error {
	return rgterr.Wrap(rgterr.ErrUsage, op, rgterr.NoPos, rgterr.NoPos, err)
}

func usageError(op string) error {
	return rgterr.New(rgterr.ErrUsage, op, rgterr.NoPos, rgterr.NoPos)
}
