package convert

import (
	"strconv"

	"github.com/lewtec/labelsync/internal/domain"
)

// CategoryTable maps category ids to zero-based class indices
type CategoryTable struct {
	index map[int]int
	names []string
}

// NewCategoryTable orders categories as declared by the set, then appends
// ids that only appear on annotations in first-seen order.
func NewCategoryTable(set *domain.AnnotationSet) *CategoryTable {
	t := &CategoryTable{index: make(map[int]int, len(set.Categories))}
	for _, cat := range set.Categories {
		t.add(cat.ID, cat.Name)
	}
	for _, ann := range set.Annotations {
		t.add(ann.CategoryID, "")
	}
	return t
}

func (t *CategoryTable) add(id int, name string) {
	if _, ok := t.index[id]; ok {
		return
	}
	if name == "" {
		name = "class_" + strconv.Itoa(id)
	}
	t.index[id] = len(t.names)
	t.names = append(t.names, name)
}

// Index returns the class index of a category id, -1 if unknown
func (t *CategoryTable) Index(categoryID int) int {
	if i, ok := t.index[categoryID]; ok {
		return i
	}
	return -1
}

// Len returns the number of classes
func (t *CategoryTable) Len() int {
	return len(t.names)
}

// Names returns the class names ordered by index
func (t *CategoryTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// LabelMap returns index to class name
func (t *CategoryTable) LabelMap() map[int]string {
	m := make(map[int]string, len(t.names))
	for i, name := range t.names {
		m[i] = name
	}
	return m
}
