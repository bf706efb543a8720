package overlay

import (
	"github.com/menta2k/image-eraser/pkg/geometry"
	"github.com/menta2k/image-eraser/pkg/types"
)

// HitTest returns the index of the first detection whose display-space box
// contains p (edges inclusive), or -1 when none does. Overlapping boxes are
// resolved by list order only, never by area or confidence.
func HitTest(dets []types.Detection, tf geometry.Transform, p geometry.Point) int {
	for i, d := range dets {
		if geometry.Contains(tf.RectToDisplay(d.Box), p) {
			return i
		}
	}
	return -1
}
