package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

type PutInput struct {
	Filename    string
	ContentType string
	Size        int64
}

type PutResult struct {
	Key string
	URL string
}

// Storage is the static media store: files go in, a public URL path comes out.
type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Delete(ctx context.Context, key string) error
}

const (
	KindImage = "image"
	KindVideo = "video"
)

var (
	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}
	videoExts = map[string]bool{".mp4": true, ".webm": true, ".mov": true}
)

// KindOf classifies an upload as image or video by content type, falling back
// to the file extension. Anything else is ErrUnsupportedMedia.
func KindOf(filename, contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case strings.HasPrefix(ct, "image/") && (ext == "" || imageExts[ext]):
		return KindImage, nil
	case strings.HasPrefix(ct, "video/") && (ext == "" || videoExts[ext]):
		return KindVideo, nil
	case imageExts[ext]:
		return KindImage, nil
	case videoExts[ext]:
		return KindVideo, nil
	default:
		return "", ErrUnsupportedMedia
	}
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if imageExts[ext] || videoExts[ext] {
		return ext
	}
	return ""
}
