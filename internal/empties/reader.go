// SPDX-License-Identifier: MIT

package empties

import (
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// OpenInput opens a possibly compressed input file. Compression is
// chosen by file extension; .gz, .bz2 and .xz are understood, anything
// else is read as-is. Callers must close the returned ReadCloser.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		r, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &wrappedReader{r: r, closers: []io.Closer{r, f}}, nil

	case strings.HasSuffix(path, ".bz2"):
		r, err := bzip2.NewReader(f, nil)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &wrappedReader{r: r, closers: []io.Closer{r, f}}, nil

	case strings.HasSuffix(path, ".xz"):
		r, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &wrappedReader{r: r, closers: []io.Closer{f}}, nil

	default:
		return f, nil
	}
}

type wrappedReader struct {
	r       io.Reader
	closers []io.Closer
}

func (w *wrappedReader) Read(p []byte) (int, error) {
	return w.r.Read(p)
}

func (w *wrappedReader) Close() error {
	var firstErr error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
