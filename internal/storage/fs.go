package storage

import (
	"context"
	"errors"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FSBucket serves objects from a billy filesystem, mapping keys to
// slash-separated paths
type FSBucket struct {
	fs billy.Filesystem
}

// NewFSBucket wraps a billy filesystem
func NewFSBucket(fs billy.Filesystem) *FSBucket {
	return &FSBucket{fs: fs}
}

// NewDirBucket serves objects from a local directory
func NewDirBucket(root string) (*FSBucket, error) {
	stat, err := os.Stat(root)
	if err != nil {
		return nil, newError("open", root, err)
	}
	if !stat.IsDir() {
		return nil, newError("open", root, errors.New("not a directory"))
	}
	return NewFSBucket(osfs.New(root)), nil
}

// List walks every file under prefix
func (b *FSBucket) List(ctx context.Context, prefix string) ([]string, error) {
	root := strings.TrimSuffix(prefix, "/")
	if root == "" {
		root = "."
	}
	var keys []string
	err := util.Walk(b.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			return nil
		}
		keys = append(keys, strings.TrimPrefix(path.Clean("/"+p), "/"))
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, newError("list", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// ListPrefixes lists the directories directly under prefix
func (b *FSBucket) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	dir := strings.TrimSuffix(prefix, "/")
	if dir == "" {
		dir = "."
	}
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, newError("list", prefix, err)
	}
	var prefixes []string
	for _, entry := range entries {
		if entry.IsDir() {
			prefixes = append(prefixes, prefix+entry.Name()+"/")
		}
	}
	return prefixes, nil
}

// Get reads one file
func (b *FSBucket) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("get", key, err)
	}
	data, err := util.ReadFile(b.fs, key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newError("get", key, ErrObjectNotFound)
		}
		return nil, newError("get", key, err)
	}
	return data, nil
}

var _ Bucket = (*FSBucket)(nil)
