// Package zfile opens data files that may be stored compressed. Files ending
// in .gz or .zst are decompressed transparently on read and compressed on
// write.
package zfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

type writeCloser struct {
	io.Writer
	close func() error
}

func (w writeCloser) Close() error { return w.close() }

// Open opens path for reading, decompressing by extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReader(f, path)
}

// NewReader wraps r according to the extension of name. Closing the result
// closes r.
func NewReader(r io.ReadCloser, name string) (io.ReadCloser, error) {
	switch filepath.Ext(name) {
	case ".gz":
		gr, err := gzip.NewReader(r)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return readCloser{gr, func() error {
			gerr := gr.Close()
			if err := r.Close(); err != nil {
				return err
			}
			return gerr
		}}, nil
	case ".zst":
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return readCloser{zr, func() error {
			zr.Close()
			return r.Close()
		}}, nil
	}
	return r, nil
}

// Create creates path for writing, compressing by extension. The file is
// only complete once Close returns nil.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".gz":
		gw := gzip.NewWriter(f)
		return writeCloser{gw, func() error {
			if err := gw.Close(); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		}}, nil
	case ".zst":
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return writeCloser{zw, func() error {
			if err := zw.Close(); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		}}, nil
	}
	return f, nil
}

// ReadFile reads a whole, possibly compressed, file.
func ReadFile(path string) ([]byte, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Resolve returns path if it exists, else the first existing compressed
// variant (path.zst, path.gz).
func Resolve(path string) (string, error) {
	for _, p := range []string{path, path + ".zst", path + ".gz"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", path, os.ErrNotExist)
}
