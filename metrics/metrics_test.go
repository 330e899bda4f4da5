package metrics_test

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/hampel/hampel"
	"github.com/ardanlabs/hampel/metrics"
)

func tempFile(require *require.Assertions) string {
	file, err := os.CreateTemp("", "*.db")
	require.NoError(err)
	file.Close()
	return file.Name()
}

func newDB(t *testing.T) *metrics.DB {
	require := require.New(t)

	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)
	t.Cleanup(func() { os.Remove(dbFile) })

	db, err := metrics.NewDB(dbFile)
	require.NoError(err)
	t.Cleanup(func() { db.Close() })
	return db
}

var start = time.Date(2020, 5, 22, 14, 13, 11, 0, time.UTC)

func TestAddSeries(t *testing.T) {
	require := require.New(t)
	db := newDB(t)

	// Out of order on purpose, Series sorts by time
	for _, i := range []int{2, 0, 1} {
		m := metrics.Metric{
			Time:  start.Add(time.Duration(i) * time.Second),
			Name:  "CPU",
			Value: float64(i) * 10,
		}
		require.NoError(db.Add(m))
	}
	require.NoError(db.Add(metrics.Metric{Time: start, Name: "MEM", Value: 1}))

	s, err := db.Series(context.Background(), "CPU")
	require.NoError(err)
	require.Equal([]float64{0, 10, 20}, s.Values)
	require.Len(s.Index, 3)
	for i, ts := range s.Index {
		require.True(ts.Equal(start.Add(time.Duration(i)*time.Second)), "time %d: %s", i, ts)
	}

	names, err := db.Names(context.Background())
	require.NoError(err)
	require.Equal([]string{"CPU", "MEM"}, names)
}

func TestAddNoName(t *testing.T) {
	db := newDB(t)
	require.Error(t, db.Add(metrics.Metric{Time: start, Value: 1}))
}

func TestSeriesUnknown(t *testing.T) {
	require := require.New(t)
	db := newDB(t)

	s, err := db.Series(context.Background(), "nope")
	require.NoError(err)
	require.Equal(0, s.Len())
}

func TestDetectStored(t *testing.T) {
	require := require.New(t)
	db := newDB(t)

	// More than one buffer worth of metrics
	const size = 2000
	for i := 0; i < size; i++ {
		m := metrics.Metric{
			Time:  start.Add(time.Duration(i) * time.Second),
			Name:  "CPU",
			Value: 20 + 5*math.Sin(float64(i)/50),
		}
		if i == 1500 {
			m.Value = 97.3
		}
		require.NoError(db.Add(m))
	}

	ctx := context.Background()
	s, err := db.Series(ctx, "CPU")
	require.NoError(err)
	require.Equal(size, s.Len())

	p := hampel.DefaultParams()
	times, err := hampel.DetectLabeled(s, p)
	require.NoError(err)
	require.Len(times, 1)
	require.True(times[0].Equal(start.Add(1500 * time.Second)))

	require.NoError(db.SaveOutliers(ctx, "CPU", times, p))
	require.NoError(db.SaveOutliers(ctx, "CPU", times, p)) // replaces

	saved, err := db.Outliers(ctx, "CPU")
	require.NoError(err)
	require.Len(saved, 1)
	require.True(saved[0].Equal(times[0]))
}

func TestClose(t *testing.T) {
	require := require.New(t)

	dbFile := tempFile(require)
	defer os.Remove(dbFile)

	db, err := metrics.NewDB(dbFile)
	require.NoError(err)
	require.NoError(db.Add(metrics.Metric{Time: start, Name: "CPU", Value: 1}))
	require.NoError(db.Close())

	// Buffered metric was flushed on close
	db, err = metrics.NewDB(dbFile)
	require.NoError(err)
	defer db.Close()

	s, err := db.Series(context.Background(), "CPU")
	require.NoError(err)
	require.Equal([]float64{1}, s.Values)
}

func BenchmarkAdd(b *testing.B) {
	require := require.New(b)
	dbFile := tempFile(require)
	defer os.Remove(dbFile)
	b.Logf("db file: %s", dbFile)

	db, err := metrics.NewDB(dbFile)
	require.NoError(err)
	defer db.Close()

	m := metrics.Metric{
		Time:  start,
		Name:  "CPU",
		Value: 21.7,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		require.NoError(db.Add(m))
	}
}

func TestConcurrentAdd(t *testing.T) {
	require := require.New(t)
	db := newDB(t)

	const workers, count = 4, 300
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			for i := 0; i < count; i++ {
				m := metrics.Metric{
					Time:  start.Add(time.Duration(w*count+i) * time.Millisecond),
					Name:  "CPU",
					Value: float64(i),
				}
				if err := db.Add(m); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(w)
	}

	for w := 0; w < workers; w++ {
		require.NoError(<-errs)
	}

	s, err := db.Series(context.Background(), "CPU")
	require.NoError(err)
	require.Equal(workers*count, s.Len())
}

func TestAddReplaces(t *testing.T) {
	require := require.New(t)
	db := newDB(t)

	require.NoError(db.Add(metrics.Metric{Time: start, Name: "CPU", Value: 1}))
	require.NoError(db.Add(metrics.Metric{Time: start.Add(time.Second), Name: "CPU", Value: 2}))
	require.NoError(db.Flush())

	// Same name and time, in a later flush and in the same one
	require.NoError(db.Add(metrics.Metric{Time: start, Name: "CPU", Value: 10}))
	require.NoError(db.Add(metrics.Metric{Time: start.Add(time.Second), Name: "CPU", Value: 20}))
	require.NoError(db.Add(metrics.Metric{Time: start.Add(time.Second), Name: "CPU", Value: 30}))
	// Same time, other name
	require.NoError(db.Add(metrics.Metric{Time: start, Name: "MEM", Value: 5}))

	s, err := db.Series(context.Background(), "CPU")
	require.NoError(err)
	require.Equal([]float64{10, 30}, s.Values)

	s, err = db.Series(context.Background(), "MEM")
	require.NoError(err)
	require.Equal([]float64{5}, s.Values)
}
