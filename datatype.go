package histdiff

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
	DataTypeZstd
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	case DataTypeZstd:
		return "zstd"
	}

	return "invalid"
}

// Byte code signatures from https://stackoverflow.com/a/19127748/199475
var byteCodeSigs = []struct {
	dt  DataType
	sig []byte
}{
	{DataTypeGzip, []byte{0x1f, 0x8b, 0x08}},
	{DataTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{DataTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{DataTypeZ, []byte{0x1f, 0x9d}},
	{DataTypeBZip2, []byte{0x42, 0x5a, 0x68}},
	{DataTypeZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
}

// DetectDataType reports the compression of a stream from its first bytes
// without consuming them.
func DetectDataType(r *bufio.Reader) (DataType, error) {
	head, err := r.Peek(6)
	if err != nil && err != io.EOF {
		return DataTypeInvalid, err
	}

	for _, s := range byteCodeSigs {
		if bytes.HasPrefix(head, s.sig) {
			return s.dt, nil
		}
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReadCloser wraps rc with the decompressor its leading bytes
// call for. Closing the result closes rc.
func MaybeDecompressReadCloser(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	dt, err := DetectDataType(br)
	if err != nil {
		rc.Close()
		return nil, err
	}

	var r io.Reader
	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			rc.Close()
			return nil, err
		}
		return &stackedCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
	case DataTypeZ:
		zr, err := zlib.NewReader(br)
		if err != nil {
			rc.Close()
			return nil, err
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	case DataTypeZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			rc.Close()
			return nil, err
		}
		zrc := zr.IOReadCloser()
		return &stackedCloser{Reader: zrc, closers: []io.Closer{zrc, rc}}, nil
	case DataTypeZip:
		// Only the first member of an archive is read.
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			rc.Close()
			return nil, err
		}
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(br)
	case DataTypeXZ:
		r, err = xz.NewReader(br, 0)
		if err != nil {
			rc.Close()
			return nil, err
		}
	default:
		r = br
	}

	return &stackedCloser{Reader: r, closers: []io.Closer{rc}}, nil
}

// stackedCloser reads from the outermost decoder and closes every layer,
// innermost last.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// extension is the lower-cased extension of path, ignoring a trailing
// compression suffix.
func extension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz", ".zst", ".xz", ".bz2", ".zip":
		return strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}

	return ext
}
