package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/branchfs/branchfs/internal/bflog"
	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/inode"
)

// flags mirrors the §6 configuration surface: one flag per scalar key
// (cache.files being the only cache.* key with a flag) and one repeatable
// key=value map flag each for func.<op> and category.*, following
// cobra's convention (seen throughout the teacher's go.mod-declared
// dependency on github.com/spf13/cobra) of binding each flag to a field
// on a single options struct rather than reading pflag.Lookup by name.
type flags struct {
	minFreeSpace int64
	moveOnEnospc string
	linkExdev    string
	renameExdev  string
	inodeCalc    string
	cacheFiles   string
	statfsMode   string
	statfsIgnore string
	xattrMode    string
	funcPolicy   map[string]string // func.<op>=<policy>
	category     map[string]string // category.{action,create,search}=<policy>
	debug        bool
	waitTimeout  time.Duration
	waitFail     bool
}

func rootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "branchfs <branches> <mountpoint>",
		Short: "Mount a union of branch directories over FUSE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMount(cmd.Context(), f, args[0], args[1])
		},
	}
	fs := cmd.Flags()
	fs.Int64Var(&f.minFreeSpace, "minfreespace", 0, "shared minimum free space threshold (bytes)")
	fs.StringVar(&f.moveOnEnospc, "moveonenospc", "false", "move-on-ENOSPC: false, true, or a policy name")
	fs.StringVar(&f.linkExdev, "link-exdev", "passthrough", "EXDEV fallback for link: passthrough, rel-symlink, abs-base-symlink, abs-pool-symlink")
	fs.StringVar(&f.renameExdev, "rename-exdev", "passthrough", "EXDEV fallback for rename")
	fs.StringVar(&f.inodeCalc, "inodecalc", "passthrough", "inode calculation mode: passthrough, path-hash(32), devino-hash(32), hybrid-hash(32)")
	fs.StringVar(&f.cacheFiles, "cache-files", "libfuse", "cache.files mode: libfuse, off, partial, full, auto-full, per-process")
	fs.StringVar(&f.statfsMode, "statfs", "base", "statfs aggregation: base or full")
	fs.StringVar(&f.statfsIgnore, "statfs-ignore", "none", "branch modes excluded from aggregate statfs: none, ro, nc")
	fs.StringVar(&f.xattrMode, "xattr", "passthrough", "xattr mode: passthrough, noattr, nosys")
	fs.StringToStringVar(&f.funcPolicy, "func", nil, "per-operation policy override, func.<op>=<policy> (repeatable)")
	fs.StringToStringVar(&f.category, "category", nil, "per-category policy override, category.{action,create,search}=<policy>")
	fs.BoolVarP(&f.debug, "debug", "d", false, "run in the foreground with debug-level logging")
	fs.DurationVar(&f.waitTimeout, "branch-wait-timeout", 0, "wait for branches to appear before mounting (0 disables)")
	fs.BoolVar(&f.waitFail, "branch-wait-fail", true, "fail the mount (rather than proceed) if branch-wait-timeout elapses")
	return cmd
}

// buildConfiguration turns the parsed flags and branch spec into a
// Configuration, independent of mounting, so it can be exercised by
// tests without a real FUSE transport.
func buildConfiguration(f *flags, branchSpec string) (*config.Configuration, inode.CalcMode, error) {
	branches, err := branch.ParseSpec(branchSpec, branch.RW, f.minFreeSpace, config.StatfsCacheTTL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing branch spec: %w", err)
	}
	calcMode, err := inode.ParseCalcMode(f.inodeCalc)
	if err != nil {
		return nil, 0, err
	}
	cfg := config.Default(branches)
	cfg.MinFreeSpace = f.minFreeSpace
	cfg.InodeCalc = f.inodeCalc

	if err := applyKeyValue(cfg, "moveonenospc", f.moveOnEnospc); err != nil {
		return nil, 0, err
	}
	if err := applyKeyValue(cfg, "link_exdev", f.linkExdev); err != nil {
		return nil, 0, err
	}
	if err := applyKeyValue(cfg, "rename_exdev", f.renameExdev); err != nil {
		return nil, 0, err
	}
	if err := applyKeyValue(cfg, "cache.files", f.cacheFiles); err != nil {
		return nil, 0, err
	}
	if err := applyKeyValue(cfg, "statfs", f.statfsMode); err != nil {
		return nil, 0, err
	}
	if err := applyKeyValue(cfg, "statfs_ignore", f.statfsIgnore); err != nil {
		return nil, 0, err
	}
	if err := applyKeyValue(cfg, "xattr", f.xattrMode); err != nil {
		return nil, 0, err
	}
	for op, policy := range f.funcPolicy {
		if err := applyKeyValue(cfg, "func."+op, policy); err != nil {
			return nil, 0, err
		}
	}
	for category, policy := range f.category {
		if err := applyKeyValue(cfg, "category."+category, policy); err != nil {
			return nil, 0, err
		}
	}
	return cfg, calcMode, nil
}

// applyKeyValue runs cfg through config.Set in place; cfg is a fresh
// Default() result here, not yet behind a Store, so it is safe to mutate
// directly rather than going through Store.Update.
func applyKeyValue(cfg *config.Configuration, key, value string) error {
	if value == "" {
		return nil
	}
	return config.Set(cfg, key, value)
}

func runMount(ctx context.Context, f *flags, branchSpec, mountPoint string) error {
	bflog.SetDebug(f.debug)

	cfg, calcMode, err := buildConfiguration(f, branchSpec)
	if err != nil {
		return withExitCode(exitUsage, err)
	}

	if f.waitTimeout > 0 {
		if err := WaitForBranches(ctx, cfg.Branches, f.waitTimeout); err != nil {
			bflog.Errorf(nil, "branch wait: %v", err)
			if f.waitFail {
				return withExitCode(exitBranchTimeout, err)
			}
		}
	}

	store := config.NewStore(cfg)
	if err := Mount(ctx, store, calcMode, mountPoint, f.debug); err != nil {
		return withExitCode(exitMountFailed, err)
	}
	return nil
}
