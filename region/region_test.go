package region_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowatch/geowatch/region"
)

func TestDefaultRegions(t *testing.T) {
	regions := region.DefaultRegions()
	require.Len(t, regions, 4)

	names := make(map[string]bool, len(regions))
	for _, r := range regions {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Focus)
		names[r.Name] = true
	}
	assert.True(t, names["mena"])
	assert.True(t, names["europe"])
	assert.True(t, names["asia-pacific"])
	assert.True(t, names["americas-africa"])
}

func writeRegionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeRegionsFile(t, `regions:
  - name: arctic
    focus: Arctic shipping lanes and territorial claims
  - name: sahel
    focus: Sahel instability belt
`)

	regions, err := region.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "arctic", regions[0].Name)
	assert.Equal(t, "Sahel instability belt", regions[1].Focus)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := region.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := region.LoadFile(writeRegionsFile(t, "regions: [}"))
		require.Error(t, err)
	})

	t.Run("no regions", func(t *testing.T) {
		_, err := region.LoadFile(writeRegionsFile(t, "regions: []"))
		require.Error(t, err)
	})

	t.Run("entry missing focus", func(t *testing.T) {
		_, err := region.LoadFile(writeRegionsFile(t, `regions:
  - name: arctic
`))
		require.Error(t, err)
	})
}

func TestPlanner(t *testing.T) {
	p := region.NewPlanner(nil)
	assert.Len(t, p.Regions(), 4) // defaults when none given

	custom := []region.Region{{Name: "arctic", Focus: "ice"}}
	p.Set(custom)
	got := p.Regions()
	require.Len(t, got, 1)
	assert.Equal(t, "arctic", got[0].Name)

	// Empty replacement is ignored so coverage is never lost.
	p.Set(nil)
	assert.Len(t, p.Regions(), 1)

	// Returned slice is a copy; mutating it does not affect the planner.
	got[0].Name = "mutated"
	assert.Equal(t, "arctic", p.Regions()[0].Name)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`regions:
  - name: first
    focus: initial coverage
`), 0o644))

	planner := region.NewPlanner([]region.Region{{Name: "first", Focus: "initial coverage"}})

	w, err := region.NewWatcher(path, planner, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(path, []byte(`regions:
  - name: second
    focus: updated coverage
`), 0o644))

	require.Eventually(t, func() bool {
		regions := planner.Regions()
		return len(regions) == 1 && regions[0].Name == "second"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_KeepsLastGoodOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`regions:
  - name: good
    focus: stable coverage
`), 0o644))

	planner := region.NewPlanner([]region.Region{{Name: "good", Focus: "stable coverage"}})

	w, err := region.NewWatcher(path, planner, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(path, []byte("regions: []"), 0o644))

	// Give the debounce a chance to fire; the partition must survive.
	time.Sleep(1200 * time.Millisecond)
	regions := planner.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, "good", regions[0].Name)
}
