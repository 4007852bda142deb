package mobo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/objective"
)

func testConfig() Config {
	return Config{
		Bounds: [][2]float64{{0, 10}, {0, 10}},
		Objectives: []objective.Objective{
			{
				Name:     "time",
				Minimize: true,
				Eval: objective.EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
					return m.GetOr("time", 100)
				}),
			},
			{
				Name:     "yield",
				Minimize: false,
				Eval: objective.EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
					return m.GetOr("yield", 0)
				}),
			},
		},
		Constraints: []objective.Constraint{
			{
				Name:      "count",
				Kind:      objective.Equality,
				Threshold: 1,
				Tol:       0.5,
				Eval: objective.EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
					return m.GetOr("count", -1)
				}),
			},
		},
		NInit: 3,
		Seed:  11,
	}
}

func newTestOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	opt, err := New(testConfig(), nil)
	require.NoError(t, err)
	return opt
}

func TestNewValidation(t *testing.T) {
	t.Run("empty bounds", func(t *testing.T) {
		cfg := testConfig()
		cfg.Bounds = nil
		_, err := New(cfg, nil)
		require.Error(t, err)
	})

	t.Run("no objectives", func(t *testing.T) {
		cfg := testConfig()
		cfg.Objectives = nil
		_, err := New(cfg, nil)
		require.Error(t, err)
	})

	t.Run("inverted bounds", func(t *testing.T) {
		cfg := testConfig()
		cfg.Bounds = [][2]float64{{5, 1}}
		_, err := New(cfg, nil)
		require.Error(t, err)
	})

	t.Run("unknown kernel", func(t *testing.T) {
		cfg := testConfig()
		cfg.Kernel = "periodic"
		_, err := New(cfg, nil)
		require.Error(t, err)
	})
}

func TestFeasibleObservationsAreArchived(t *testing.T) {
	opt := newTestOptimizer(t)

	x, err := opt.Suggest()
	require.NoError(t, err)
	require.NoError(t, opt.Register(x, optimization.Measurements{"time": 10, "yield": 0.5, "count": 1}))
	assert.Equal(t, 1, opt.FrontSize())

	x, err = opt.Suggest()
	require.NoError(t, err)
	require.NoError(t, opt.Register(x, optimization.Measurements{"time": 10, "yield": 0.5, "count": 3}))
	assert.Equal(t, 1, opt.FrontSize(), "infeasible point must not be archived")
	assert.Equal(t, 2, opt.Observations())
}

func TestMaximizedObjectivesAreNegated(t *testing.T) {
	opt := newTestOptimizer(t)

	x, err := opt.Suggest()
	require.NoError(t, err)
	require.NoError(t, opt.Register(x, optimization.Measurements{"time": 10, "yield": 0.8, "count": 1}))

	point := opt.Front()[0]
	require.Len(t, point.Objectives, 2)
	assert.Equal(t, 10.0, point.Objectives[0])
	assert.Equal(t, -0.8, point.Objectives[1])
}

func TestDominatedTradeoffEvicted(t *testing.T) {
	opt := newTestOptimizer(t)

	feed := func(time, yield float64) {
		x, err := opt.Suggest()
		require.NoError(t, err)
		require.NoError(t, opt.Register(x, optimization.Measurements{"time": time, "yield": yield, "count": 1}))
	}

	feed(10, 0.5)
	feed(20, 0.3) // dominated: slower and lower yield
	assert.Equal(t, 1, opt.FrontSize())

	feed(5, 0.9) // dominates the first point
	assert.Equal(t, 1, opt.FrontSize())
	assert.Equal(t, 5.0, opt.Front()[0].Objectives[0])

	feed(3, 0.2) // faster but lower yield: incomparable
	assert.Equal(t, 2, opt.FrontSize())
}

func TestSeedDoesNotBlockSuggest(t *testing.T) {
	opt := newTestOptimizer(t)

	for i := 0; i < 4; i++ {
		opt.Seed([]float64{float64(i), float64(i)},
			optimization.Measurements{"time": float64(10 - i), "yield": 0.1, "count": 1})
	}
	assert.Equal(t, 4, opt.Observations())

	// Seeding satisfied NInit, so the next suggestion is surrogate-driven and
	// must not trip the pending check.
	x, err := opt.Suggest()
	require.NoError(t, err)
	require.Len(t, x, 2)
	for d, b := range opt.Bounds() {
		assert.GreaterOrEqual(t, x[d], b[0])
		assert.LessOrEqual(t, x[d], b[1])
	}
}

func TestSuggestProtocol(t *testing.T) {
	t.Run("register before suggest", func(t *testing.T) {
		opt := newTestOptimizer(t)
		err := opt.Register([]float64{1, 1}, optimization.Measurements{"count": 1})
		assert.ErrorIs(t, err, optimization.ErrNoPendingSuggest)
		assert.Equal(t, 0, opt.Observations())
	})

	t.Run("double suggest", func(t *testing.T) {
		opt := newTestOptimizer(t)

		_, err := opt.Suggest()
		require.NoError(t, err)

		_, err = opt.Suggest()
		assert.ErrorIs(t, err, optimization.ErrSuggestPending)
	})
}

func TestSnapshotRestore(t *testing.T) {
	opt := newTestOptimizer(t)

	for i := 0; i < 5; i++ {
		x, err := opt.Suggest()
		require.NoError(t, err)
		require.NoError(t, opt.Register(x, optimization.Measurements{
			"time":  float64(20 - i),
			"yield": float64(i) * 0.1,
			"count": 1,
		}))
	}

	snap := opt.Snapshot()

	restored, err := New(testConfig(), nil)
	require.NoError(t, err)
	restored.Restore(snap)

	assert.Equal(t, opt.Observations(), restored.Observations())
	assert.Equal(t, opt.FrontSize(), restored.FrontSize())
	assert.Equal(t, opt.Bounds(), restored.Bounds())

	// The restored optimizer keeps working.
	x, err := restored.Suggest()
	require.NoError(t, err)
	require.NoError(t, restored.Register(x, optimization.Measurements{"time": 1, "yield": 0.9, "count": 1}))
	assert.Equal(t, opt.Observations()+1, restored.Observations())
}
