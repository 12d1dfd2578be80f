// Package convert turns COCO bounding boxes into the normalized
// center-format text records accepted by the remote training platform.
//
// Every function in this package is pure; a Converter is read-only after
// construction and may be shared by concurrent workers.
package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lewtec/labelsync/internal/domain"
)

var (
	// ErrUnknownImage indicates the image id is not part of the annotation set
	ErrUnknownImage = errors.New("convert: unknown image id")

	// ErrInvalidDimensions indicates the image has a non-positive width or height
	ErrInvalidDimensions = errors.New("convert: invalid image dimensions")
)

// precision is the number of decimals written for normalized values
const precision = 6

// Converter converts the annotations of one annotation set
type Converter struct {
	categories *CategoryTable
	images     map[int]domain.Image
	boxes      map[int][]domain.Annotation
}

// New builds a Converter for an annotation set. The category table and the
// per-image grouping are computed once here.
func New(set *domain.AnnotationSet) *Converter {
	c := &Converter{
		categories: NewCategoryTable(set),
		images:     make(map[int]domain.Image, len(set.Images)),
		boxes:      make(map[int][]domain.Annotation),
	}
	for _, img := range set.Images {
		c.images[img.ID] = img
	}
	for _, ann := range set.Annotations {
		c.boxes[ann.ImageID] = append(c.boxes[ann.ImageID], ann)
	}
	return c
}

// Convert builds a Converter and converts a single image. Prefer New when
// converting many images of the same set.
func Convert(imageID int, set *domain.AnnotationSet) (domain.ConvertedAnnotation, error) {
	return New(set).Convert(imageID)
}

// Image returns the image record for an id
func (c *Converter) Image(imageID int) (domain.Image, bool) {
	img, ok := c.images[imageID]
	return img, ok
}

// Convert returns one record per annotation of the image, in input order.
// An image without annotations yields an empty, valid result.
func (c *Converter) Convert(imageID int) (domain.ConvertedAnnotation, error) {
	img, ok := c.images[imageID]
	if !ok {
		return domain.ConvertedAnnotation{}, fmt.Errorf("%w: %d", ErrUnknownImage, imageID)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return domain.ConvertedAnnotation{}, fmt.Errorf("%w: %s is %dx%d", ErrInvalidDimensions, img.FileName, img.Width, img.Height)
	}

	anns := c.boxes[imageID]
	lines := make([]string, 0, len(anns))
	for _, ann := range anns {
		lines = append(lines, c.record(ann, img))
	}
	return domain.ConvertedAnnotation{
		Lines:    lines,
		LabelMap: c.categories.LabelMap(),
	}, nil
}

func (c *Converter) record(ann domain.Annotation, img domain.Image) string {
	w := float64(img.Width)
	h := float64(img.Height)
	cx := (ann.BBox.X + ann.BBox.W/2) / w
	cy := (ann.BBox.Y + ann.BBox.H/2) / h
	bw := ann.BBox.W / w
	bh := ann.BBox.H / h

	var b strings.Builder
	b.WriteString(strconv.Itoa(c.categories.Index(ann.CategoryID)))
	for _, v := range [4]float64{cx, cy, bw, bh} {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(clamp(v), 'f', precision, 64))
	}
	return b.String()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
