package stage

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoddden/terradev-broker/pkg/model"
)

func TestPickCodec_AutoResolvesToZstd(t *testing.T) {
	assert.Equal(t, model.CodecZstd, pickCodec(model.CodecAuto))
}

func TestPickCodec_ExplicitChoicesPassThrough(t *testing.T) {
	assert.Equal(t, model.CodecGzip, pickCodec(model.CodecGzip))
	assert.Equal(t, model.CodecNone, pickCodec(model.CodecNone))
}

func TestCompressFile_ZstdRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.bin")
	payload := bytes.Repeat([]byte("gpu-brokerage-dataset-payload"), 1000)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	dst := filepath.Join(dir, "data.bin.zst")
	original, compressed, err := compressFile(src, dst, model.CodecZstd)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), original)
	assert.Greater(t, compressed, int64(0))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()
	roundTripped, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, payload, roundTripped)
}

func TestCompressFile_GzipRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.bin")
	payload := []byte("small payload for gzip")
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	dst := filepath.Join(dir, "data.bin.gz")
	_, _, err := compressFile(src, dst, model.CodecGzip)
	require.NoError(t, err)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gr.Close()
	roundTripped, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, payload, roundTripped)
}

func TestCompressFile_NoneCopiesThrough(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.bin")
	payload := []byte("uncompressed")
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	dst := filepath.Join(dir, "data.bin.copy")
	original, compressed, err := compressFile(src, dst, model.CodecNone)
	require.NoError(t, err)
	assert.Equal(t, original, compressed)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestChunkFile_SmallFileReturnsItselfUnchunked(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.bin")
	require.NoError(t, os.WriteFile(src, []byte("tiny"), 0o644))

	chunks, err := chunkFile(src, 1024)
	require.NoError(t, err)
	assert.Equal(t, []string{src}, chunks)
}

func TestChunkFile_LargeFileSplitsIntoFixedSizePieces(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "large.bin")
	payload := bytes.Repeat([]byte("x"), 25)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	chunks, err := chunkFile(src, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	var reassembled []byte
	for _, c := range chunks {
		data, err := os.ReadFile(c)
		require.NoError(t, err)
		reassembled = append(reassembled, data...)
	}
	assert.Equal(t, payload, reassembled)
}

func TestChecksumFile_DeterministicForSameContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(a, []byte("identical content"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("identical content"), 0o644))

	sumA, err := checksumFile(a)
	require.NoError(t, err)
	sumB, err := checksumFile(b)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)

	require.NoError(t, os.WriteFile(b, []byte("different content"), 0o644))
	sumB2, err := checksumFile(b)
	require.NoError(t, err)
	assert.NotEqual(t, sumA, sumB2)
}

func TestStage_EndToEndLocalBackendNoCloudCreds(t *testing.T) {
	srcDir := t.TempDir()
	stagingDir := t.TempDir()
	src := filepath.Join(srcDir, "dataset.bin")
	require.NoError(t, os.WriteFile(src, bytes.Repeat([]byte("abc123"), 500), 0o644))

	s := New(1024*1024, stagingDir)
	// "local-test" matches none of the S3/GCS/Azure prefix heuristics and
	// no SCP backend is configured, so storage.Select falls through to
	// the always-available LocalBackend.
	result, err := s.Stage(context.Background(), src, []string{"local-test"}, model.CodecGzip)
	require.NoError(t, err)

	assert.Equal(t, model.CodecGzip, result.Codec)
	assert.Greater(t, result.OriginalBytes, int64(0))
	assert.Len(t, result.Checksums, 1)
	require.Contains(t, result.Regions, "local-test")
	region := result.Regions["local-test"]
	assert.Equal(t, model.RegionStaged, region.Status)
	assert.Equal(t, 1, region.ChunksUploaded)
	assert.True(t, region.ChecksumVerified)
	assert.Empty(t, region.Errors)
}

func TestStage_PlanEstimatesWithoutExecuting(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "dataset.bin")
	payload := bytes.Repeat([]byte("z"), 1000)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	s := New(1024*1024, t.TempDir())
	plan, err := s.Plan(context.Background(), src, []string{"us-east-1"}, model.CodecAuto)
	require.NoError(t, err)

	assert.Equal(t, model.CodecZstd, plan.Codec)
	assert.Equal(t, int64(len(payload)), plan.SourceSizeBytes)
	assert.Equal(t, 1, plan.ChunkCount)
}
