// Package storage turns uploaded media into stable URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vytor/quests/internal/logger"
)

var ErrUnsupportedType = errors.New("unsupported media type")

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// File is one uploaded file. Field is the form field it arrived under.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Uploader stores a file and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// Disk stores media under a local directory served at baseURL.
type Disk struct {
	dir     string
	baseURL string
	newKey  func() string
}

func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Disk{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		newKey:  uuid.NewString,
	}, nil
}

func (d *Disk) Upload(ctx context.Context, f File) (string, error) {
	log := logger.FromContext(ctx).WithPrefix("storage")

	ext := strings.ToLower(filepath.Ext(f.Name))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, f.Name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := d.newKey() + ext
	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, f.Content)
	if err != nil {
		tmp.Close()
		log.Error("failed to write %s: %v", f.Name, err)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, key)); err != nil {
		return "", err
	}

	log.Debug("stored %s as %s (%d bytes)", f.Name, key, n)
	return d.baseURL + "/" + key, nil
}

// Handler serves stored media. Mount it behind http.StripPrefix.
func (d *Disk) Handler() http.Handler {
	return http.FileServer(http.Dir(d.dir))
}
