package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]AlgorithmType{
		"sequential-phragmen": SequentialPhragmen,
		"sequential":          SequentialPhragmen,
		"parallel-phragmen":   ParallelPhragmen,
		"parallel":            ParallelPhragmen,
		"multi-phase":         MultiPhase,
		"multiphase":          MultiPhase,
		"SEQUENTIAL":          SequentialPhragmen,
		"  parallel  ":        ParallelPhragmen,
	}
	for in, want := range cases {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseAlgorithmUnknown(t *testing.T) {
	_, err := ParseAlgorithm("approval-voting")
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "algorithm", validationErr.Field)
	assert.Contains(t, validationErr.Message, "approval-voting")
}

func TestAlgorithms(t *testing.T) {
	assert.Equal(t, []AlgorithmType{SequentialPhragmen, ParallelPhragmen, MultiPhase}, Algorithms())
}

func TestAlgorithmTypeJSON(t *testing.T) {
	out, err := json.Marshal(SequentialPhragmen)
	require.NoError(t, err)
	assert.Equal(t, `"sequential-phragmen"`, string(out))

	var a AlgorithmType
	require.NoError(t, json.Unmarshal([]byte(`"parallel"`), &a))
	assert.Equal(t, ParallelPhragmen, a)

	require.Error(t, json.Unmarshal([]byte(`"ranked-pairs"`), &a))
	require.Error(t, json.Unmarshal([]byte(`42`), &a))
}
