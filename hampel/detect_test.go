package hampel

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// sinData returns sin over 201 points in [-π, π] with two samples zeroed.
func sinData() ([]float64, []int) {
	const size = 201
	data := make([]float64, size)
	step := 2 * math.Pi / (size - 1)
	for i := range data {
		data[i] = math.Sin(-math.Pi + float64(i)*step)
	}
	data[size-1] = math.Sin(math.Pi)

	indices := []int{50, 150}
	for _, i := range indices {
		data[i] = 0
	}

	return data, indices
}

func TestDetectList(t *testing.T) {
	require := require.New(t)

	data, indices := sinData()
	out, err := Detect(List(data), DefaultParams())
	require.NoError(err, "detect")
	require.Equal(indices, out, "outliers")
}

func TestDetectArray(t *testing.T) {
	require := require.New(t)

	data := []int{1, 2, 3, 4, 5, 100, 7, 8, 9, 10}
	out, err := Apply(data, DefaultParams())
	require.NoError(err)
	require.Equal([]int{5}, out)
}

func TestDetectLabeled(t *testing.T) {
	require := require.New(t)

	data, indices := sinData()
	index := make([]int, len(data))
	for i := range index {
		index[i] = i + 10
	}
	s := Labeled[int]{Index: index, Values: data}

	out, err := DetectLabeled(s, DefaultParams())
	require.NoError(err)
	require.Len(out, len(indices))
	for i, pos := range indices {
		require.Equal(s.Index[pos], out[i])
	}
	require.Equal([]int{60, 160}, out)
}

func TestApplyLabeledTime(t *testing.T) {
	require := require.New(t)

	data, indices := sinData()
	start := time.Date(2020, 5, 22, 14, 13, 11, 0, time.UTC)
	times := make([]time.Time, len(data))
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Second)
	}

	out, err := Apply(Labeled[time.Time]{Index: times, Values: data}, DefaultParams())
	require.NoError(err)
	require.Equal([]time.Time{times[indices[0]], times[indices[1]]}, out)
}

func TestApplyInvalidInput(t *testing.T) {
	require := require.New(t)

	_, err := Apply("[1, 2, 3]", DefaultParams())
	require.ErrorIs(err, ErrInvalidInput)

	_, err = Detect(nil, DefaultParams())
	require.ErrorIs(err, ErrInvalidInput)
}

func TestDetectInvalidParams(t *testing.T) {
	data, _ := sinData()

	for _, p := range []Params{
		{WindowSize: 0, NSigma: 3, C: 1.4826},
		{WindowSize: -1, NSigma: 3, C: 1.4826},
		{WindowSize: 4, NSigma: 3, C: 1.4826},
		{WindowSize: 5, NSigma: -1, C: 1.4826},
	} {
		_, err := Detect(List(data), p)
		require.ErrorIs(t, err, ErrInvalidParameter, "%+v", p)
	}
}

func TestDetectShort(t *testing.T) {
	require := require.New(t)

	_, err := Detect(List{1, 2, 3, 4}, DefaultParams())
	require.ErrorIs(err, ErrInvalidParameter)

	_, err = Detect(List{}, DefaultParams())
	require.ErrorIs(err, ErrInvalidParameter)
}

func TestDetectInclusive(t *testing.T) {
	require := require.New(t)

	// median 1, MAD 1: |2 - 1| == 1 * 1
	data := List{0, 0, 2, 1, 1}

	out, err := Detect(data, Params{WindowSize: 5, NSigma: 1, C: 1})
	require.NoError(err)
	require.Equal([]int{2}, out)

	out, err = Detect(data, Params{WindowSize: 5, NSigma: 1.001, C: 1})
	require.NoError(err)
	require.Empty(out)
}

func TestDetectFlat(t *testing.T) {
	require := require.New(t)

	// scale is 0 and every center sits on its median
	out, err := Detect(List{2, 2, 2, 2, 2, 2}, Params{WindowSize: 3, NSigma: 3, C: 1})
	require.NoError(err)
	require.Equal([]int{1, 2, 3, 4}, out)
}

func TestDetectWindowOne(t *testing.T) {
	require := require.New(t)

	data, _ := sinData()
	out, err := Detect(List(data), Params{WindowSize: 1, NSigma: 3, C: DefaultConsistency})
	require.NoError(err)
	require.Empty(out)
}

func TestDetectZeroSigma(t *testing.T) {
	require := require.New(t)

	// any deviation from the window median is an outlier
	out, err := Detect(List{1, 3, 2, 5, 4}, Params{WindowSize: 3, NSigma: 0, C: 1})
	require.NoError(err)
	require.Equal([]int{1, 2, 3}, out)
}

func TestDetectRange(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for _, window := range []int{1, 3, 5, 7, 21} {
		values := make([]float64, 300)
		for i := range values {
			values[i] = rnd.NormFloat64()
			if rnd.Intn(20) == 0 {
				values[i] += 50
			}
		}

		p := Params{WindowSize: window, NSigma: 2, C: DefaultConsistency}
		out, err := Detect(List(values), p)
		require.NoError(t, err)

		k := p.HalfWidth()
		require.LessOrEqual(t, len(out), len(values)-(window-1))
		for i, pos := range out {
			require.GreaterOrEqual(t, pos, k)
			require.LessOrEqual(t, pos, len(values)-1-k)
			if i > 0 {
				require.Greater(t, pos, out[i-1], "ascending")
			}
		}

		again, err := Detect(List(values), p)
		require.NoError(t, err)
		require.Equal(t, out, again, "deterministic")
	}
}

func TestDetectNaN(t *testing.T) {
	require := require.New(t)

	p := Params{WindowSize: 3, NSigma: 3, C: 1}
	s := List{1, 2, math.NaN(), 4, 5}

	// Every window holds the NaN, none has a median to compare with
	out, err := Detect(s, p)
	require.NoError(err)
	require.Equal([]int{}, out)

	st, err := Rolling(s, p)
	require.NoError(err)
	for j := 0; j < st.Len(); j++ {
		require.True(math.IsNaN(st.Median[j]), "median %d", j)
		require.True(math.IsNaN(st.Scale[j]), "scale %d", j)
	}

	// Windows away from the NaN still detect
	s = List{1, 2, math.NaN(), 4, 5, 100, 7, 8}
	out, err = Detect(s, p)
	require.NoError(err)
	require.Equal([]int{5}, out)
}

func BenchmarkDetect(b *testing.B) {
	require := require.New(b)
	data, _ := sinData()
	s := List(data)
	p := DefaultParams()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := Detect(s, p)
		require.NoError(err)
	}
}
