// Package uploads stores listing images on local disk and maps them to the
// public URLs saved on image rows.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"arthings/internal/apperr"
	"arthings/internal/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	maxFiles  int
}

// NewStore creates the upload directory when it does not exist yet.
func NewStore(dir, urlPrefix string, maxBytes int64, maxFiles int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		maxBytes:  maxBytes,
		maxFiles:  maxFiles,
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) URLPrefix() string {
	return s.urlPrefix
}

func (s *Store) MaxFiles() int {
	return s.maxFiles
}

// Save validates and writes a batch of images, returning their public paths
// in the order given. Either every file is stored or none is.
func (s *Store) Save(files []*multipart.FileHeader) ([]string, error) {
	if len(files) > s.maxFiles {
		return nil, apperr.Validation("Maximum %d images allowed", s.maxFiles)
	}

	saved := make([]string, 0, len(files))
	for _, fh := range files {
		p, err := s.saveOne(fh)
		if err != nil {
			s.Remove(saved)
			return nil, err
		}
		saved = append(saved, p)
	}
	return saved, nil
}

func (s *Store) saveOne(fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxBytes {
		return "", apperr.Validation("Image %s exceeds the %d MB limit", fh.Filename, s.maxBytes/(1024*1024))
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	mime, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to detect upload type: %w", err)
	}
	ext, ok := allowedTypes[mime.String()]
	if !ok {
		return "", apperr.Validation("Only JPEG, PNG, GIF and WebP images are allowed")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	name := uuid.New().String() + ext
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	// the header size comes from the client, so cap the copy as well
	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxBytes {
		err = apperr.Validation("Image %s exceeds the %d MB limit", fh.Filename, s.maxBytes/(1024*1024))
	}
	if err != nil {
		os.Remove(filepath.Join(s.dir, name))
		if apperr.KindOf(err) == apperr.KindValidation {
			return "", err
		}
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}

// Remove deletes the files behind the given public paths. Failures are
// logged; paths outside the store are ignored.
func (s *Store) Remove(paths []string) {
	for _, p := range paths {
		if !strings.HasPrefix(p, s.urlPrefix+"/") {
			continue
		}
		name := filepath.Base(strings.TrimPrefix(p, s.urlPrefix+"/"))
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to remove image file", "path", p, "error", err)
		}
	}
}
