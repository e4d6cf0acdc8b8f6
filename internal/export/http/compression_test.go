package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []byte(`{"name":"my.timer.count","value":5}
{"name":"my.timer.sum","value":10}
`)

func TestCompressor_Gzip(t *testing.T) {
	c, err := NewCompressor(CompressionGzip)
	require.NoError(t, err)
	defer c.Close()

	compressed, err := c.Compress(sample)
	require.NoError(t, err)
	assert.Equal(t, "gzip", c.ContentEncoding())

	out, err := DecompressGzip(compressed)
	require.NoError(t, err)
	assert.Equal(t, sample, out)
}

func TestCompressor_Zstd(t *testing.T) {
	c, err := NewCompressor(CompressionZstd)
	require.NoError(t, err)
	defer c.Close()

	compressed, err := c.Compress(sample)
	require.NoError(t, err)
	assert.Equal(t, "zstd", c.ContentEncoding())

	out, err := DecompressZstd(compressed)
	require.NoError(t, err)
	assert.Equal(t, sample, out)
}

func TestCompressor_Snappy(t *testing.T) {
	c, err := NewCompressor(CompressionSnappy)
	require.NoError(t, err)
	defer c.Close()

	compressed, err := c.Compress(sample)
	require.NoError(t, err)
	assert.Equal(t, "snappy", c.ContentEncoding())

	out, err := DecompressSnappy(compressed)
	require.NoError(t, err)
	assert.Equal(t, sample, out)
}

func TestCompressor_NonePassesThrough(t *testing.T) {
	c, err := NewCompressor(CompressionNone)
	require.NoError(t, err)
	defer c.Close()

	compressed, err := c.Compress(sample)
	require.NoError(t, err)
	assert.Equal(t, sample, compressed)
	assert.Empty(t, c.ContentEncoding())
}

func TestCompressor_UnsupportedAlgorithm(t *testing.T) {
	c, err := NewCompressor("brotli")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Compress(sample)
	require.Error(t, err)
}
