package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/lewtec/labelsync/internal/domain"
)

// DuplicatePolicy decides what happens when two images of an annotation set
// share a file name
type DuplicatePolicy string

const (
	// DuplicateFail aborts the run with domain.ErrDuplicateFileName
	DuplicateFail DuplicatePolicy = "fail"
	// DuplicateWarn logs the collision and keeps the first image id
	DuplicateWarn DuplicatePolicy = "warn"
)

// ParseDuplicatePolicy validates a configured policy name
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateFail:
		return DuplicateFail, nil
	case DuplicateWarn:
		return DuplicateWarn, nil
	}
	return "", fmt.Errorf("unknown duplicate file name policy %q (want fail or warn)", s)
}

// IdentityIndex maps a file name to its image id. It is never mutated after
// BuildIndex returns.
type IdentityIndex struct {
	ids map[string]int
}

// BuildIndex indexes the images of an annotation set by file name
func BuildIndex(images []domain.Image, policy DuplicatePolicy, logger *slog.Logger) (*IdentityIndex, error) {
	ids := make(map[string]int, len(images))
	for _, img := range images {
		if prev, ok := ids[img.FileName]; ok {
			if policy != DuplicateWarn {
				return nil, fmt.Errorf("%w: %s (image ids %d and %d)", domain.ErrDuplicateFileName, img.FileName, prev, img.ID)
			}
			if logger != nil {
				logger.Warn("duplicate file name in annotation set, keeping first image id",
					"file_name", img.FileName, "kept", prev, "ignored", img.ID)
			}
			continue
		}
		ids[img.FileName] = img.ID
	}
	return &IdentityIndex{ids: ids}, nil
}

// Lookup returns the image id for a file name
func (ix *IdentityIndex) Lookup(fileName string) (int, bool) {
	id, ok := ix.ids[fileName]
	return id, ok
}

// Len returns the number of indexed file names
func (ix *IdentityIndex) Len() int {
	return len(ix.ids)
}
