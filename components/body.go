package components

// Body holds the fixed bounding extents of an agent.
type Body struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds returns the bounding box of a body placed at pos.
func (b Body) Bounds(pos Position) Rect {
	return Rect{X: pos.X, Y: pos.Y, Width: b.Width, Height: b.Height}
}

// Center returns the center of a body placed at pos.
func (b Body) Center(pos Position) (float64, float64) {
	return pos.X + b.Width/2, pos.Y + b.Height/2
}
