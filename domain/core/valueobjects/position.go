package valueobjects

import "math"

// Position is the canvas coordinate of a flow node. Fields are exported
// because positions round-trip through the persisted document shape.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position with coordinate validation.
func NewPosition(x, y float64) (Position, bool) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, false
	}
	return Position{X: x, Y: y}, true
}

// Valid reports whether both coordinates are finite numbers.
func (p Position) Valid() bool {
	return isValidCoordinate(p.X) && isValidCoordinate(p.Y)
}

// DistanceTo calculates the Euclidean distance to another position.
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
