// Package stage compresses, chunks, and fans a dataset out to every
// target region. Grounded end-to-end on
// original_source/terradev_cli/core/dataset_stager.py's
// DatasetStager.plan/stage.
package stage

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/theoddden/terradev-broker/internal/logging"
	"github.com/theoddden/terradev-broker/internal/metrics"
	"github.com/theoddden/terradev-broker/internal/stage/resolve"
	"github.com/theoddden/terradev-broker/internal/stage/storage"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// Stager orchestrates the full pipeline: resolve, compress, chunk,
// upload, cleanup.
type Stager struct {
	chunkSize  int64
	stagingDir string
	resolver   *resolve.Resolver

	s3Backend, gcsBackend, azureBackend, scpBackend storage.Backend
	localBackend                                    storage.Backend
}

// Option configures an optional upload backend. A nil backend for a
// given scheme just means that precedence tier is skipped for every
// region.
type Option func(*Stager)

func WithS3Backend(b storage.Backend) Option    { return func(s *Stager) { s.s3Backend = b } }
func WithGCSBackend(b storage.Backend) Option   { return func(s *Stager) { s.gcsBackend = b } }
func WithAzureBackend(b storage.Backend) Option { return func(s *Stager) { s.azureBackend = b } }
func WithSCPBackend(b storage.Backend) Option   { return func(s *Stager) { s.scpBackend = b } }

func New(chunkSize int64, stagingDir string, opts ...Option) *Stager {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSizeBytes
	}
	if stagingDir == "" {
		home, _ := os.UserHomeDir()
		stagingDir = filepath.Join(home, ".terradev-broker", "staging")
	}
	s := &Stager{
		chunkSize:    chunkSize,
		stagingDir:   stagingDir,
		resolver:     resolve.New(stagingDir),
		localBackend: storage.NewLocalBackend(stagingDir),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan reports what Stage would do without executing it.
func (s *Stager) Plan(ctx context.Context, datasetRef string, regions []string, codec model.CompressionCodec) (model.StagingPlan, error) {
	size, err := s.detectSize(datasetRef)
	if err != nil {
		size = 0
	}
	resolved := pickCodec(codec)
	estCompressed := estimateCompressedSize(resolved, size)
	chunkCount := int(math.Ceil(float64(estCompressed) / float64(s.chunkSize)))
	if chunkCount < 1 {
		chunkCount = 1
	}

	return model.StagingPlan{
		DatasetRef:               datasetRef,
		TargetRegions:            regions,
		SourceSizeBytes:          size,
		Codec:                    resolved,
		EstimatedCompressedBytes: estCompressed,
		ChunkCount:               chunkCount,
		ChunkSizeBytes:           s.chunkSize,
	}, nil
}

func (s *Stager) detectSize(ref string) (int64, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.Walk(ref, func(_ string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	return total, err
}

// Stage runs the full pipeline: resolve the dataset to a local path,
// compress it, split the compressed file into chunks, then fan each
// chunk out to every target region concurrently (one goroutine per
// region — the region count is always small, so no extra semaphore is
// needed beyond the implicit len(regions) bound).
func (s *Stager) Stage(ctx context.Context, datasetRef string, regions []string, codec model.CompressionCodec) (model.StagingResult, error) {
	start := time.Now()

	localPath, err := s.resolver.Resolve(ctx, datasetRef)
	if err != nil {
		return model.StagingResult{}, err
	}

	resolvedCodec := pickCodec(codec)

	var originalBytes, compressedBytes int64
	compressedPath := localPath
	info, statErr := os.Stat(localPath)
	isFile := statErr == nil && !info.IsDir()

	if resolvedCodec != model.CodecNone && isFile {
		ext := map[model.CompressionCodec]string{model.CodecZstd: "zst", model.CodecGzip: "gz"}[resolvedCodec]
		compressedPath = filepath.Join(s.stagingDir, filepath.Base(localPath)+"."+ext)
		originalBytes, compressedBytes, err = compressFile(localPath, compressedPath, resolvedCodec)
		if err != nil {
			return model.StagingResult{}, err
		}
	} else if isFile {
		originalBytes = info.Size()
		compressedBytes = originalBytes
	}

	chunks, err := chunkFile(compressedPath, s.chunkSize)
	if err != nil {
		return model.StagingResult{}, err
	}

	checksums := make([]string, len(chunks))
	for i, c := range chunks {
		sum, err := checksumFile(c)
		if err != nil {
			return model.StagingResult{}, err
		}
		checksums[i] = sum
	}

	regionResults := make(map[string]model.RegionResult, len(regions))
	resultsCh := make(chan model.RegionResult, len(regions))
	for _, region := range regions {
		region := region
		go func() {
			resultsCh <- s.uploadRegion(ctx, region, datasetRef, chunks, compressedBytes)
		}()
	}
	for range regions {
		r := <-resultsCh
		regionResults[r.Region] = r
	}
	close(resultsCh)

	for _, c := range chunks {
		if c != compressedPath {
			os.Remove(c)
		}
	}

	ratio := 0.0
	if originalBytes > 0 {
		ratio = (1 - float64(compressedBytes)/float64(originalBytes)) * 100
	}

	result := model.StagingResult{
		DatasetRef:              datasetRef,
		OriginalBytes:           originalBytes,
		CompressedBytes:         compressedBytes,
		CompressionRatioPercent: ratio,
		Codec:                   resolvedCodec,
		Checksums:               checksums,
		Regions:                 regionResults,
		TotalElapsedMS:          float64(time.Since(start).Milliseconds()),
	}
	return result, nil
}

func (s *Stager) uploadRegion(ctx context.Context, region, datasetRef string, chunks []string, size int64) model.RegionResult {
	start := time.Now()
	backend := storage.Select(region, s.s3Backend, s.gcsBackend, s.azureBackend, s.scpBackend, s.localBackend)

	uploaded := 0
	var errs []string
	for _, chunkPath := range chunks {
		key := fmt.Sprintf("terradev-staging/%s/%s", datasetNameStem(datasetRef), filepath.Base(chunkPath))
		f, err := os.Open(chunkPath)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		err = backend.Upload(ctx, region, key, f)
		f.Close()
		if err != nil {
			logging.Warn("chunk upload failed", map[string]interface{}{"region": region, "backend": backend.Name(), "error": err.Error()})
			if len(errs) < 3 {
				errs = append(errs, err.Error())
			}
			continue
		}
		uploaded++
	}

	status := model.RegionStaged
	switch {
	case len(errs) > 0 && uploaded == 0:
		status = model.RegionFailed
	case len(errs) > 0:
		status = model.RegionPartial
	}

	metrics.StagingBytesUploadedTotal.WithLabelValues(region, string(status)).Add(float64(size))

	return model.RegionResult{
		Region:           region,
		ChunksUploaded:   uploaded,
		BytesUploaded:    size,
		ElapsedMS:        float64(time.Since(start).Milliseconds()),
		ChecksumVerified: uploaded == len(chunks),
		Status:           status,
		Errors:           errs,
	}
}

func datasetNameStem(ref string) string {
	base := filepath.Base(ref)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
