// Package histdiff holds the input helpers shared by the HistDiff packages and
// binaries: opening local or Google Storage files, transparent decompression
// and delimiter detection.
package histdiff

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// SplitGSPath breaks a gs://bucket/object path into its bucket and object.
func SplitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// IsGSPath reports whether path points to Google Storage.
func IsGSPath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// OpenRaw opens a local file, or a gs:// object when client is set. The
// content is returned as stored.
func OpenRaw(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	if IsGSPath(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: a storage client is required for gs:// paths", path)
		}

		bucketName, pathName, err := SplitGSPath(path)
		if err != nil {
			return nil, err
		}

		r, err := client.Bucket(bucketName).Object(pathName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}

		return r, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Open is OpenRaw followed by decompression of gzip, zstd, xz, zip, bzip2 and
// zlib content.
func Open(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	rc, err := OpenRaw(ctx, path, client)
	if err != nil {
		return nil, err
	}

	return MaybeDecompressReadCloser(rc)
}

// Opener returns a function that opens path afresh on every call, for
// consumers that read the same input more than once.
func Opener(ctx context.Context, path string, client *storage.Client) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return Open(ctx, path, client)
	}
}

// ReadAll reads a whole, possibly compressed, file into memory.
func ReadAll(ctx context.Context, path string, client *storage.Client) ([]byte, error) {
	rc, err := Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
