package generator

import (
	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
)

// Attempt is the outcome of one variation call: either a variation or an error
type Attempt struct {
	Index     int
	Variation models.ThumbnailVariation
	Image     imagedata.Image
	Err       error
}

// OK reports whether the attempt produced an image
func (a Attempt) OK() bool {
	return a.Err == nil
}

type decision int

const (
	accept decision = iota
	abort
	record
)

// decide applies the cycle policy: only a failure at index 0 is fatal
func decide(a Attempt) decision {
	switch {
	case a.OK():
		return accept
	case a.Index == 0:
		return abort
	default:
		return record
	}
}
