package paths

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"graph_bwt/pkg/geo"
)

const maxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any
// indexed node.
var ErrPointTooFar = errors.New("point too far from any indexed node")

// Initial search box half-width in degrees. 0.001° ≈ 110 m; doubling three
// times covers ±880 m, well over the 500 m max snap distance.
const (
	initialBoxDeg = 0.001
	maxBoxDeg     = 0.008
)

// Locator finds the indexed node nearest to a coordinate. Candidates come
// from an R-tree box search that expands until something is in range; the
// winner is picked by exact great-circle distance.
type Locator struct {
	tr  rtree.RTree
	lat []float64
	lon []float64
}

// NewLocator indexes the coordinates of every compact node id. Entry 0 of
// the slices is ignored.
func NewLocator(lat, lon []float64) *Locator {
	l := &Locator{lat: lat, lon: lon}
	for id := 1; id < len(lat); id++ {
		p := [2]float64{lon[id], lat[id]}
		l.tr.Insert(p, p, uint64(id))
	}
	return l
}

// Nearest returns the compact id of the node closest to (lat, lng) and its
// distance in meters. ErrPointTooFar if nothing is within the snap limit.
func (l *Locator) Nearest(lat, lng float64) (uint64, float64, error) {
	for box := initialBoxDeg; box <= maxBoxDeg; box *= 2 {
		bestID := uint64(0)
		bestDist := math.Inf(1)
		l.tr.Search(
			[2]float64{lng - box, lat - box},
			[2]float64{lng + box, lat + box},
			func(_, _ [2]float64, data interface{}) bool {
				id := data.(uint64)
				if d := geo.Haversine(lat, lng, l.lat[id], l.lon[id]); d < bestDist {
					bestDist, bestID = d, id
				}
				return true
			},
		)
		if bestID != 0 && bestDist <= maxSnapDistMeters {
			return bestID, bestDist, nil
		}
	}
	return 0, 0, ErrPointTooFar
}
