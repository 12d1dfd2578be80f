package storage

import (
	"context"

	"github.com/lewtec/labelsync/internal/convert"
	"github.com/lewtec/labelsync/internal/domain"
)

// Stats summarizes a dataset from its annotation set and image listing
func (s *Store) Stats(ctx context.Context, version, dataset string) (*domain.DatasetStats, error) {
	set, err := s.GetAnnotations(ctx, version, dataset)
	if err != nil {
		return nil, err
	}
	keys, err := s.ListImages(ctx, version, dataset)
	if err != nil {
		return nil, err
	}
	return ComputeStats(version, dataset, set, len(keys)), nil
}

// ComputeStats derives dataset statistics from an annotation set. Classes
// follow the same index order the converter writes into YOLO lines.
func ComputeStats(version, dataset string, set *domain.AnnotationSet, imageCount int) *domain.DatasetStats {
	table := convert.NewCategoryTable(set)
	classes := table.Names()

	stats := &domain.DatasetStats{
		Version:          version,
		Dataset:          dataset,
		ImageCount:       imageCount,
		AnnotationCount:  len(set.Annotations),
		CategoryCount:    len(set.Categories),
		Classes:          classes,
		BoxesPerCategory: make(map[string]int),
	}
	annotated := make(map[int]struct{})
	for _, ann := range set.Annotations {
		annotated[ann.ImageID] = struct{}{}
		stats.BoxesPerCategory[classes[table.Index(ann.CategoryID)]]++
	}
	stats.AnnotatedImages = len(annotated)
	return stats
}
