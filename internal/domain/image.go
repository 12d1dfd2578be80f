package domain

import "strings"

// ImageKey is the storage locator of one image blob
type ImageKey string

// FileName returns the last path segment of the key
func (k ImageKey) FileName() string {
	s := string(k)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (k ImageKey) String() string {
	return string(k)
}
