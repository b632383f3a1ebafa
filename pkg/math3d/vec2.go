package math3d

// Vec2 represents a 2D vector (screen position or texture coordinate).
type Vec2 struct {
	X, Y float64
}

// V2 creates a new Vec2.
func V2(x, y float64) Vec2 {
	return Vec2{x, y}
}

// Cross returns the 2D cross product (the Z component of the 3D cross).
// Its sign gives the winding of a,b; its magnitude is twice the triangle area.
func (a Vec2) Cross(b Vec2) float64 {
	return a.X*b.Y - a.Y*b.X
}
