package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// AnnotationSet is the ground truth of one dataset version in the COCO
// interchange schema
type AnnotationSet struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Image describes one annotated image
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Annotation is one bounding box drawn on an image
type Annotation struct {
	ID         int     `json:"id"`
	ImageID    int     `json:"image_id"`
	CategoryID int     `json:"category_id"`
	BBox       BBox    `json:"bbox"`
	Area       float64 `json:"area"`
	IsCrowd    int     `json:"iscrowd"`
}

// Category is a detection class
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// BBox is an absolute pixel box with a top-left origin
type BBox struct {
	X float64
	Y float64
	W float64
	H float64
}

// UnmarshalJSON reads the COCO [x, y, width, height] array form
func (b *BBox) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("while decoding bbox: %w", err)
	}
	if len(values) != 4 {
		return fmt.Errorf("while decoding bbox: expected 4 values, got %d", len(values))
	}
	b.X, b.Y, b.W, b.H = values[0], values[1], values[2], values[3]
	return nil
}

// MarshalJSON writes the COCO [x, y, width, height] array form
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.W, b.H})
}

// ParseAnnotationSet decodes a COCO JSON document
func ParseAnnotationSet(data []byte) (*AnnotationSet, error) {
	var set AnnotationSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("while parsing annotation set: %w", err)
	}
	return &set, nil
}

// AnnotationStore reads annotation documents and image blobs for a
// (version, dataset) pair
type AnnotationStore interface {
	// GetAnnotations fetches the annotation set of a dataset
	GetAnnotations(ctx context.Context, version, dataset string) (*AnnotationSet, error)

	// ListImages enumerates the image keys of a dataset in a stable order
	ListImages(ctx context.Context, version, dataset string) ([]ImageKey, error)

	// GetImage retrieves the raw bytes of one image
	GetImage(ctx context.Context, key ImageKey) ([]byte, error)
}

// DatasetCatalog enumerates what the store holds
type DatasetCatalog interface {
	ListVersions(ctx context.Context) ([]string, error)
	ListDatasets(ctx context.Context, version string) ([]string, error)
}

// DatasetStats summarizes one dataset
type DatasetStats struct {
	Version          string         `json:"version"`
	Dataset          string         `json:"dataset"`
	ImageCount       int            `json:"imageCount"`
	AnnotatedImages  int            `json:"annotatedImages"`
	AnnotationCount  int            `json:"annotationCount"`
	CategoryCount    int            `json:"categoryCount"`
	Classes          []string       `json:"classes"` // by class index
	BoxesPerCategory map[string]int `json:"boxesPerCategory"`
}
