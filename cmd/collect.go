package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shark-voyager/voyager-cli/internal/catalog"
	"github.com/shark-voyager/voyager-cli/internal/collector"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Download raw data from the ocean data providers",
	Long:  "Fetches occurrence records, environmental rasters, and vector features for the configured region and period, and saves the raw results under the data directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		g, err := studyGrid()
		if err != nil {
			return err
		}
		tr, err := studyRange()
		if err != nil {
			return err
		}

		registry := collector.NewRegistry(cfg, newHTTPFetcher(), newFTPFetcher())

		only, _ := cmd.Flags().GetStringSlice("only")
		names := registry.Names()
		if len(only) > 0 {
			names = nil
			for _, name := range only {
				if registry.Get(name) == nil {
					return eris.Errorf("collect: unknown provider %q", name)
				}
				names = append(names, name)
			}
		}

		st, err := initCatalog(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, "collect", g.Region, cfg.Temporal.StartDate, cfg.Temporal.EndDate)
		if err != nil {
			return err
		}
		zap.L().Info("collect: starting run",
			zap.String("run_id", run.ID),
			zap.Strings("providers", names),
		)

		datasets, failures := fetchAll(ctx, registry, names, g, tr, st, run.ID)

		if len(datasets) > 0 {
			if err := collector.SaveDatasets(cfg.Paths.DataRaw, datasets); err != nil {
				_ = st.CompleteRun(ctx, run.ID, catalog.RunFailed)
				return err
			}
		}

		status := catalog.RunComplete
		if len(datasets) == 0 {
			status = catalog.RunFailed
		}
		if err := st.CompleteRun(ctx, run.ID, status); err != nil {
			return err
		}

		fmt.Printf("Collected %d of %d providers into %s\n", len(datasets), len(names), cfg.Paths.DataRaw)
		if len(failures) > 0 {
			fmt.Printf("Failed: %s\n", strings.Join(failures, ", "))
		}
		return nil
	},
}

// fetchAll runs the named collectors, sequentially or in parallel per
// configuration. Individual provider failures are recorded in the catalog and
// skipped so one flaky upstream does not sink the whole collection.
func fetchAll(ctx context.Context, registry *collector.Registry, names []string,
	g grid.Grid, tr temporal.Range, st catalog.Store, runID string,
) (datasets []*collector.Dataset, failures []string) {
	var mu sync.Mutex

	fetchOne := func(name string) {
		ds, err := registry.Get(name).Fetch(ctx, g, tr)

		mu.Lock()
		defer mu.Unlock()

		variable := catalog.Variable{RunID: runID, Name: name, Status: "ok"}
		if err != nil {
			zap.L().Warn("collect: provider failed",
				zap.String("provider", name),
				zap.Error(err),
			)
			failures = append(failures, name)
			variable.Status = "failed"
			variable.Reason = err.Error()
		} else {
			datasets = append(datasets, ds)
		}
		if err := st.RecordVariable(ctx, variable); err != nil {
			zap.L().Warn("collect: record variable", zap.Error(err))
		}
	}

	if cfg.Collect.Parallel {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(4)
		for _, name := range names {
			eg.Go(func() error {
				fetchOne(name)
				return egCtx.Err()
			})
		}
		_ = eg.Wait()
	} else {
		for _, name := range names {
			fetchOne(name)
		}
	}

	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Name < datasets[j].Name })
	sort.Strings(failures)
	return datasets, failures
}

func init() {
	collectCmd.Flags().StringSlice("only", nil, "comma-separated provider names to collect (default: all)")
	rootCmd.AddCommand(collectCmd)
}
