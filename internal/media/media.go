// Package media stores item artwork, item audio and profile images in object
// storage and hands back the public URL views link to.
package media

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// Folder is one of the fixed logical buckets objects are stored under.
type Folder string

const (
	FolderUserImages Folder = "user-images"
	FolderItemImages Folder = "nft-images"
	FolderItemAudio  Folder = "nft-audio"
)

// Valid reports whether f is a known folder.
func (f Folder) Valid() bool {
	switch f {
	case FolderUserImages, FolderItemImages, FolderItemAudio:
		return true
	default:
		return false
	}
}

// Store uploads and deletes objects.
type Store interface {
	Upload(ctx context.Context, folder Folder, filename string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// ContentType guesses the media type of an upload, preferring the file
// extension and falling back to sniffing the first bytes.
func ContentType(filename string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

// Require checks that the upload is non-empty and of the wanted top-level
// media type, e.g. "image" or "audio".
func Require(filename string, data []byte, kind string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: %s file is empty", apperr.ErrValidationFailed, kind)
	}
	ct := ContentType(filename, data)
	if !strings.HasPrefix(ct, kind+"/") {
		return fmt.Errorf("%w: %s is %s, want %s/*", apperr.ErrValidationFailed, filename, ct, kind)
	}
	return nil
}

func objectKey(folder Folder, id, filename string) string {
	return string(folder) + "/" + id + strings.ToLower(filepath.Ext(filename))
}
