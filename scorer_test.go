package searchml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracyScorer_Ratio(t *testing.T) {
	s := NewAccuracyScorer()

	// 3 matches out of 5
	pairs := [][2]string{
		{"cat", "cat"},
		{"dog", "cat"},
		{"cat", "cat"},
		{"cat", "cat"},
		{"bird", "dog"},
	}
	for _, p := range pairs {
		require.NoError(t, s.Observe(p[0], p[1]))
	}

	v, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 0.6, v)
}

func TestAccuracyScorer_Bounds(t *testing.T) {
	all := NewAccuracyScorer()
	none := NewAccuracyScorer()
	for i := 0; i < 10; i++ {
		require.NoError(t, all.Observe("x", "x"))
		require.NoError(t, none.Observe("x", "y"))
	}

	v, err := all.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = none.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestAccuracyScorer_EmptyIsUndefined(t *testing.T) {
	_, err := NewAccuracyScorer().Finalize()
	assert.ErrorIs(t, err, ErrNoObservations)
}

func TestMeanSquaredErrorScorer_PerfectPredictionIsZero(t *testing.T) {
	s := NewMeanSquaredErrorScorer()
	for _, v := range []string{"1", "2.5", "-3", "0"} {
		require.NoError(t, s.Observe(v, v))
	}

	v, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestMeanSquaredErrorScorer_HalfScaling(t *testing.T) {
	s := NewMeanSquaredErrorScorer()

	// single observation with error e reports 0.5*e^2
	require.NoError(t, s.Observe("1", "4"))

	v, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)
}

func TestMeanSquaredErrorScorer_Mean(t *testing.T) {
	s := NewMeanSquaredErrorScorer()

	// squared errors 4, 0, 1, 9
	require.NoError(t, s.Observe("0", "2"))
	require.NoError(t, s.Observe("3", "3"))
	require.NoError(t, s.Observe("1", "2"))
	require.NoError(t, s.Observe("0", "3"))

	v, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 1.75, v)
}

func TestMeanSquaredErrorScorer_MalformedField(t *testing.T) {
	s := NewMeanSquaredErrorScorer()

	err := s.Observe("not-a-number", "1")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "predicted", fe.Field)

	err = s.Observe("1", "oops")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "actual", fe.Field)

	// malformed pairs must not count
	_, err = s.Finalize()
	assert.ErrorIs(t, err, ErrNoObservations)
}

func TestMeanSquaredErrorScorer_EmptyIsUndefined(t *testing.T) {
	_, err := NewMeanSquaredErrorScorer().Finalize()
	assert.ErrorIs(t, err, ErrNoObservations)
}
