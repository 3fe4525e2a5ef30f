package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"

	"call-analytics-backend/internal/shared/util"
)

// ErrNotFound is returned by Open and Delete when no object exists for the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore holds uploaded call audio.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// NewKey builds "<namespace>/<uuid>_<file name>" after sanitising both parts.
func NewKey(namespace, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	dir, err := util.SanitizeFileName(namespace)
	if err != nil {
		return "", fmt.Errorf("sanitize namespace: %w", err)
	}
	return path.Join(dir, uuid.NewString()+"_"+name), nil
}

const sniffLen = 512

// Sniff peeks at the head of r and returns its content type together with a reader
// that still yields the whole stream.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read head: %w", err)
	}
	head = head[:n]
	return DetectAudioType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// DetectAudioType extends http.DetectContentType with the call formats it does not know
// (FLAC, MP4/M4A audio, MP3 without an ID3 tag).
func DetectAudioType(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte("fLaC")):
		return "audio/flac"
	case len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")):
		return "audio/mp4"
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	}
	return http.DetectContentType(head)
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
