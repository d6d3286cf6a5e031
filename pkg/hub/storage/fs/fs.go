package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tendant/resource-hub/pkg/hub"
)

// ErrObjectNotFound is returned for keys with no file behind them.
var ErrObjectNotFound = errors.New("object not found")

// Backend is a filesystem implementation of the hub.BlobStore interface
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // Optional URL prefix for returned file URLs
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:   filepath.Clean(config.BaseDir),
		urlPrefix: config.URLPrefix,
	}, nil
}

// Put writes the content to baseDir/key. The file is written to a temporary
// name first and renamed so a failed write leaves nothing at key.
func (b *Backend) Put(ctx context.Context, params hub.PutParams) (string, error) {
	filePath, err := b.path(params.Key)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, params.Reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return b.url(params.Key), nil
}

// Open opens the file stored at key
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := b.path(key)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, "", ErrObjectNotFound
	} else if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(filePath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return file, mimeType, nil
}

// Delete deletes content from the filesystem
func (b *Backend) Delete(ctx context.Context, key string) error {
	filePath, err := b.path(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return ErrObjectNotFound
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))

	return nil
}

// List walks baseDir and returns the files whose key starts with prefix
func (b *Backend) List(ctx context.Context, prefix string) ([]hub.BlobInfo, error) {
	var infos []hub.BlobInfo
	err := filepath.WalkDir(b.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, hub.BlobInfo{Key: key, Size: info.Size(), ModifiedAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// path resolves key under baseDir and rejects keys escaping it.
func (b *Backend) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(filePath, b.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("object key escapes base directory: %s", key)
	}
	return filePath, nil
}

func (b *Backend) url(key string) string {
	if b.urlPrefix == "" {
		return "file://" + filepath.ToSlash(filepath.Join(b.baseDir, key))
	}
	return strings.TrimSuffix(b.urlPrefix, "/") + "/" + key
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
