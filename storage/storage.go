// Package storage keeps uploaded attachments. Files are staged first and only
// committed once the record that owns them has been written, so a failed
// database write never leaves an orphaned file behind.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	mathrand "math/rand"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrUnsupportedType is returned for files whose content is not an allowed type.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidKey is returned for keys that could escape the storage root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// AllowedTypes lists the content types accepted for attachments.
var AllowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// File is an upload as received from the client.
type File struct {
	Name string
	Size int64
	Body io.Reader
}

// Staged describes a file that has been written but not yet committed.
type Staged struct {
	Key          string
	URL          string
	OriginalName string
	MimeType     string
	Size         int64
}

// Store persists attachments.
type Store interface {
	// Stage writes the file to temporary storage.
	Stage(ctx context.Context, f File) (Staged, error)
	// Commit makes a staged file permanent under its key.
	Commit(ctx context.Context, s Staged) error
	// Discard removes a staged file that will never be committed.
	Discard(ctx context.Context, s Staged) error
	// Delete removes a committed file. Missing files are not an error.
	Delete(ctx context.Context, key string) error
}

// Sweeper is implemented by stores that can remove abandoned staged files.
type Sweeper interface {
	SweepStaging(ctx context.Context, olderThan time.Duration) (int, error)
}

// CommitAll commits every staged file and returns the first error.
func CommitAll(ctx context.Context, st Store, staged []Staged) error {
	var first error
	for _, s := range staged {
		if err := st.Commit(ctx, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// DiscardAll discards every staged file, returning the first error.
func DiscardAll(ctx context.Context, st Store, staged []Staged) error {
	var first error
	for _, s := range staged {
		if err := st.Discard(ctx, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sniff detects the content type from the first bytes of body and returns a
// reader that still yields the whole body.
func sniff(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	ct, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	if _, ok := AllowedTypes[ct]; !ok {
		return ct, nil, ErrUnsupportedType
	}
	return ct, io.MultiReader(bytes.NewReader(head), body), nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newKey returns a sortable object name with the extension of its content type.
func newKey(contentType string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()) + AllowedTypes[contentType]
}

// validKey rejects anything but a bare object name.
func validKey(key string) error {
	if key == "" || key != path.Base(key) || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return ErrInvalidKey
	}
	return nil
}
