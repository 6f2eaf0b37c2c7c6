package stage

import (
	"compress/gzip"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/theoddden/terradev-broker/pkg/model"
)

// pickCodec resolves "auto" to zstd, mirroring the Python original's
// _pick_compression: zstd gives the best ratio/speed tradeoff on ML
// data, gzip is the stdlib-only fallback. Neither "zstd" nor "gzip" nor
// "none" change under auto resolution.
func pickCodec(requested model.CompressionCodec) model.CompressionCodec {
	if requested != model.CodecAuto {
		return requested
	}
	return model.CodecZstd
}

// compressFile compresses src into dst using codec and returns
// (original size, compressed size). CodecNone just copies the file
// through unchanged, matching how the original treats a source that
// isn't a regular file.
func compressFile(src, dst string, codec model.CompressionCodec) (int64, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, 0, err
	}
	original := info.Size()

	out, err := os.Create(dst)
	if err != nil {
		return 0, 0, err
	}
	defer out.Close()

	switch codec {
	case model.CodecZstd:
		enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return 0, 0, err
		}
		if _, err := io.Copy(enc, in); err != nil {
			enc.Close()
			return 0, 0, err
		}
		if err := enc.Close(); err != nil {
			return 0, 0, err
		}
	case model.CodecGzip:
		gw, err := gzip.NewWriterLevel(out, gzip.DefaultCompression)
		if err != nil {
			return 0, 0, err
		}
		if _, err := io.Copy(gw, in); err != nil {
			gw.Close()
			return 0, 0, err
		}
		if err := gw.Close(); err != nil {
			return 0, 0, err
		}
	default:
		if _, err := io.Copy(out, in); err != nil {
			return 0, 0, err
		}
	}

	compressedInfo, err := out.Stat()
	if err != nil {
		return 0, 0, err
	}
	return original, compressedInfo.Size(), nil
}

// estimateCompressedSize mirrors the Python plan()'s rough ratio
// heuristics (zstd ~0.35x, gzip ~0.45x on typical ML data) used to
// report a StagingPlan before the real compression runs.
func estimateCompressedSize(codec model.CompressionCodec, size int64) int64 {
	switch codec {
	case model.CodecZstd:
		return int64(float64(size) * 0.35)
	case model.CodecGzip:
		return int64(float64(size) * 0.45)
	default:
		return size
	}
}
