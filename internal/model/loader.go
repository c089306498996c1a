package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

// maxArtifactBytes bounds the decompressed size of an artifact.
const maxArtifactBytes = 512 << 20

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionZstd
)

func compressionFor(path string) compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return compressionGzip
	case ".zst", ".zstd":
		return compressionZstd
	default:
		return compressionNone
	}
}

// ReadArtifact decodes and validates an artifact file. Compression is chosen by
// extension: .gz for gzip, .zst for zstd, anything else is plain JSON.
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer apperrors.SafeClose(f, "model artifact")

	var r io.Reader = f
	switch compressionFor(path) {
	case compressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer apperrors.SafeClose(gz, "gzip reader")
		r = gz
	case compressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var a Artifact
	if err := json.NewDecoder(io.LimitReader(r, maxArtifactBytes)).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}

	return &a, nil
}

// WriteArtifact encodes a to path, compressing according to the extension.
func WriteArtifact(path string, a *Artifact) (err error) {
	if err := a.validate(); err != nil {
		return fmt.Errorf("invalid artifact: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close artifact: %w", cerr)
		}
	}()

	var w io.WriteCloser
	switch compressionFor(path) {
	case compressionGzip:
		w = gzip.NewWriter(f)
	case compressionZstd:
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return fmt.Errorf("open zstd stream: %w", err)
		}
		w = zw
	default:
		w = nopWriteCloser{f}
	}

	if err := json.NewEncoder(w).Encode(a); err != nil {
		_ = w.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flush artifact: %w", err)
	}

	return nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
