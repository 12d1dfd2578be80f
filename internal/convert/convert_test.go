package convert

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewtec/labelsync/internal/domain"
)

func sampleSet() *domain.AnnotationSet {
	return &domain.AnnotationSet{
		Images: []domain.Image{
			{ID: 1, FileName: "a.jpg", Width: 640, Height: 480},
			{ID: 2, FileName: "b.jpg", Width: 100, Height: 200},
			{ID: 3, FileName: "empty.jpg", Width: 10, Height: 10},
		},
		Annotations: []domain.Annotation{
			{ID: 10, ImageID: 1, CategoryID: 7, BBox: domain.BBox{X: 64, Y: 48, W: 128, H: 96}},
			{ID: 11, ImageID: 2, CategoryID: 3, BBox: domain.BBox{X: 0, Y: 0, W: 100, H: 200}},
			{ID: 12, ImageID: 1, CategoryID: 3, BBox: domain.BBox{X: 320, Y: 240, W: 0, H: 0}},
			{ID: 13, ImageID: 1, CategoryID: 7, BBox: domain.BBox{X: 0, Y: 0, W: 640, H: 480}},
		},
		Categories: []domain.Category{
			{ID: 3, Name: "barcode"},
			{ID: 7, Name: "label"},
		},
	}
}

func parseLine(t *testing.T, line string) (int, [4]float64) {
	t.Helper()
	fields := strings.Fields(line)
	require.Len(t, fields, 5, "line %q", line)
	idx, err := strconv.Atoi(fields[0])
	require.NoError(t, err)
	var values [4]float64
	for i := range values {
		values[i], err = strconv.ParseFloat(fields[i+1], 64)
		require.NoError(t, err)
	}
	return idx, values
}

func TestConvert(t *testing.T) {
	t.Run("normalizes center and size by image dimensions", func(t *testing.T) {
		out, err := Convert(1, sampleSet())
		require.NoError(t, err)
		require.Len(t, out.Lines, 3)

		idx, v := parseLine(t, out.Lines[0])
		assert.Equal(t, 1, idx)
		assert.InDelta(t, (64.0+128.0/2)/640, v[0], 1e-6)
		assert.InDelta(t, (48.0+96.0/2)/480, v[1], 1e-6)
		assert.InDelta(t, 128.0/640, v[2], 1e-6)
		assert.InDelta(t, 96.0/480, v[3], 1e-6)
		assert.Equal(t, "1 0.200000 0.200000 0.200000 0.200000", out.Lines[0])
	})

	t.Run("keeps input annotation order", func(t *testing.T) {
		out, err := Convert(1, sampleSet())
		require.NoError(t, err)
		assert.Equal(t, []string{
			"1 0.200000 0.200000 0.200000 0.200000",
			"0 0.500000 0.500000 0.000000 0.000000",
			"1 0.500000 0.500000 1.000000 1.000000",
		}, out.Lines)
	})

	t.Run("image without boxes yields no lines", func(t *testing.T) {
		out, err := Convert(3, sampleSet())
		require.NoError(t, err)
		assert.Empty(t, out.Lines)
		assert.True(t, out.Empty())
		assert.Equal(t, "", out.Payload())
	})

	t.Run("unknown image", func(t *testing.T) {
		_, err := Convert(99, sampleSet())
		assert.True(t, errors.Is(err, ErrUnknownImage))
	})

	t.Run("zero dimensions", func(t *testing.T) {
		set := sampleSet()
		set.Images[2].Width = 0
		_, err := Convert(3, set)
		assert.True(t, errors.Is(err, ErrInvalidDimensions))
	})

	t.Run("clamps boxes spilling outside the image", func(t *testing.T) {
		set := &domain.AnnotationSet{
			Images:      []domain.Image{{ID: 1, FileName: "x.jpg", Width: 100, Height: 100}},
			Annotations: []domain.Annotation{{ImageID: 1, CategoryID: 1, BBox: domain.BBox{X: 90, Y: -20, W: 40, H: 160}}},
		}
		out, err := Convert(1, set)
		require.NoError(t, err)
		_, v := parseLine(t, out.Lines[0])
		for _, value := range v {
			assert.GreaterOrEqual(t, value, 0.0)
			assert.LessOrEqual(t, value, 1.0)
		}
	})
}

func TestConvert_Idempotent(t *testing.T) {
	set := sampleSet()
	first, err := Convert(1, set)
	require.NoError(t, err)
	second, err := Convert(1, set)
	require.NoError(t, err)
	assert.Equal(t, first.Payload(), second.Payload())
}

func TestConverter_StableCategoryIndex(t *testing.T) {
	c := New(sampleSet())
	a, err := c.Convert(1)
	require.NoError(t, err)
	b, err := c.Convert(2)
	require.NoError(t, err)

	first, _ := parseLine(t, a.Lines[1])
	second, _ := parseLine(t, b.Lines[0])
	assert.Equal(t, first, second, "category 3 must map to one index")
	assert.Equal(t, map[int]string{0: "barcode", 1: "label"}, a.LabelMap)
}

func TestCategoryTable(t *testing.T) {
	t.Run("declared order first", func(t *testing.T) {
		table := NewCategoryTable(sampleSet())
		assert.Equal(t, 0, table.Index(3))
		assert.Equal(t, 1, table.Index(7))
		assert.Equal(t, -1, table.Index(42))
		assert.Equal(t, []string{"barcode", "label"}, table.Names())
	})

	t.Run("falls back to first-seen order", func(t *testing.T) {
		set := &domain.AnnotationSet{
			Annotations: []domain.Annotation{
				{ImageID: 1, CategoryID: 9},
				{ImageID: 1, CategoryID: 4},
				{ImageID: 2, CategoryID: 9},
			},
			Categories: []domain.Category{{ID: 4, Name: "box"}},
		}
		table := NewCategoryTable(set)
		assert.Equal(t, 2, table.Len())
		assert.Equal(t, 0, table.Index(4))
		assert.Equal(t, 1, table.Index(9))
		assert.Equal(t, []string{"box", "class_9"}, table.Names())
	})
}
