package enums

import "fmt"

// MediaCategory groups gallery media into the site's album sections.
type MediaCategory string

const (
	MediaCategoryPrewedding MediaCategory = "prewedding"
	MediaCategoryCeremony   MediaCategory = "ceremony"
	MediaCategoryReception  MediaCategory = "reception"
	MediaCategoryFamily     MediaCategory = "family"
	MediaCategoryOther      MediaCategory = "other"
)

var validMediaCategories = []MediaCategory{
	MediaCategoryPrewedding,
	MediaCategoryCeremony,
	MediaCategoryReception,
	MediaCategoryFamily,
	MediaCategoryOther,
}

// String returns the literal string for the category.
func (m MediaCategory) String() string {
	return string(m)
}

// IsValid reports whether the category is known.
func (m MediaCategory) IsValid() bool {
	for _, candidate := range validMediaCategories {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaCategory converts raw input into a MediaCategory.
func ParseMediaCategory(value string) (MediaCategory, error) {
	for _, candidate := range validMediaCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media category %q", value)
}
