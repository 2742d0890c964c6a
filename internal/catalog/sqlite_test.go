package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shark-voyager/voyager-cli/internal/config"
	"github.com/shark-voyager/voyager-cli/internal/grid"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRegion() grid.Region {
	return grid.Region{MinLon: -130, MaxLon: -110, MinLat: 25, MaxLat: 45}
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "standardize", testRegion(), "2023-01-01", "2023-12-31")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "standardize", got.Command)
	assert.Equal(t, testRegion(), got.Region)
	assert.Equal(t, "2023-01-01", got.StartDate)

	require.NoError(t, s.CompleteRun(ctx, run.ID, RunComplete))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunComplete, got.Status)
}

func TestSQLiteCompleteRunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	err := s.CompleteRun(context.Background(), "no-such-run", RunComplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "no-such-run")
	require.Error(t, err)
}

func TestSQLiteListRunsFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, "collect", testRegion(), "2023-01-01", "2023-06-30")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "standardize", testRegion(), "2023-01-01", "2023-06-30")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, first.ID, RunComplete))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: RunComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, first.ID, complete[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteVariables(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "standardize", testRegion(), "2023-01-01", "2023-12-31")
	require.NoError(t, err)

	require.NoError(t, s.RecordVariable(ctx, Variable{
		RunID:   run.ID,
		Name:    "sst",
		Status:  "ok",
		Outputs: []string{"sst_weekly.nc", "sst_gradient_weekly.nc"},
	}))
	require.NoError(t, s.RecordVariable(ctx, Variable{
		RunID:  run.ID,
		Name:   "oxygen",
		Status: "skipped",
		Reason: "no layers returned",
	}))

	vars, err := s.ListVariables(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "oxygen", vars[0].Name)
	assert.Equal(t, "no layers returned", vars[0].Reason)
	assert.Equal(t, []string{"sst_weekly.nc", "sst_gradient_weekly.nc"}, vars[1].Outputs)

	// Re-recording the same variable replaces it.
	require.NoError(t, s.RecordVariable(ctx, Variable{
		RunID:  run.ID,
		Name:   "oxygen",
		Status: "ok",
	}))
	vars, err = s.ListVariables(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "ok", vars[0].Status)
}

func TestOpenSQLiteDriver(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), config.CatalogConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(dir, "cat.db"),
	})
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	_, err = store.CreateRun(context.Background(), "collect", testRegion(), "2023-01-01", "2023-06-30")
	assert.NoError(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.CatalogConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
