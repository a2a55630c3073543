package history

import "github.com/Conceptual-Machines/thumbforge-api/internal/models"

// DefaultCap is the maximum number of entries kept per owner
const DefaultCap = 20

// Log is a most-recent-first list of generated variations.
// Every operation returns a new Log and leaves the receiver untouched.
type Log []models.ThumbnailVariation

// Prepend puts entry first and drops the oldest entries beyond limit.
// A limit below 1 uses DefaultCap.
func (l Log) Prepend(entry models.ThumbnailVariation, limit int) Log {
	if limit < 1 {
		limit = DefaultCap
	}
	size := len(l) + 1
	if size > limit {
		size = limit
	}
	out := make(Log, 0, size)
	out = append(out, entry)
	return append(out, l[:size-1]...)
}

// Without removes the entry with the given id
func (l Log) Without(id string) (Log, bool) {
	out := make(Log, 0, len(l))
	found := false
	for _, entry := range l {
		if entry.ID == id {
			found = true
			continue
		}
		out = append(out, entry)
	}
	return out, found
}

// Replace swaps the image of the entry with the given id, keeping its position
func (l Log) Replace(id, imageData string) (Log, *models.ThumbnailVariation) {
	out := make(Log, len(l))
	copy(out, l)
	for i := range out {
		if out[i].ID == id {
			out[i].ImageData = imageData
			updated := out[i]
			return out, &updated
		}
	}
	return out, nil
}

// Retitle sets the title of every entry whose id is in titles
func (l Log) Retitle(titles map[string]string) (Log, int) {
	out := make(Log, len(l))
	copy(out, l)
	n := 0
	for i := range out {
		if title, ok := titles[out[i].ID]; ok {
			out[i].Title = title
			n++
		}
	}
	return out, n
}

// Find returns the entry with the given id
func (l Log) Find(id string) (models.ThumbnailVariation, bool) {
	for _, entry := range l {
		if entry.ID == id {
			return entry, true
		}
	}
	return models.ThumbnailVariation{}, false
}
