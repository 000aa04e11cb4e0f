package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValueScan(t *testing.T) {
	m := JSONMap{"isPublic": true, "defaultMode": "solid", "limit": float64(3)}

	v, err := m.Value()
	require.NoError(t, err)

	var got JSONMap
	require.NoError(t, got.Scan(v))
	assert.Equal(t, m, got)
}

func TestJSONMapNilRoundTrip(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, v, "nil map stores as SQL NULL")

	got := JSONMap{"stale": true}
	require.NoError(t, got.Scan(nil))
	assert.Nil(t, got)
}

func TestJSONMapScanSources(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, float64(1), m["a"])

	require.NoError(t, m.Scan(`{"b":"x"}`))
	assert.Equal(t, "x", m["b"])

	assert.Error(t, m.Scan(42))
}

func TestJSONMapHelpers(t *testing.T) {
	m := JSONMap{"isBlinded": true, "defaultMode": "clone", "empty": "", "count": float64(2)}

	assert.True(t, m.Bool("isBlinded", false))
	assert.False(t, m.Bool("missing", false))
	assert.True(t, m.Bool("missing", true))
	assert.False(t, m.Bool("defaultMode", false), "non-bool falls back")

	assert.Equal(t, "clone", m.String("defaultMode", "stage1"))
	assert.Equal(t, "stage1", m.String("missing", "stage1"))
	assert.Equal(t, "stage1", m.String("empty", "stage1"), "empty string falls back")
	assert.Equal(t, "stage1", m.String("count", "stage1"), "non-string falls back")

	var nilMap JSONMap
	assert.False(t, nilMap.Bool("x", false))
	assert.Equal(t, "d", nilMap.String("x", "d"))
}
