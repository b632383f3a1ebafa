package render

// Strategy is the parallel decomposition used to rasterize a frame's
// triangle list. All three produce the same image when depth testing is on;
// they differ only in how work maps onto workers.
type Strategy int

const (
	// TriangleParallel shards the triangle list across workers. Best for
	// many small triangles.
	TriangleParallel Strategy = iota
	// PixelParallel rasterizes triangles one at a time, splitting each
	// bounding box into row bands. Best for few large triangles.
	PixelParallel
	// Mixed partitions triangles by screen area and runs both of the
	// above on the two groups concurrently.
	Mixed
)

// String returns the strategy name for logs.
func (s Strategy) String() string {
	switch s {
	case PixelParallel:
		return "pixel-parallel"
	case Mixed:
		return "mixed"
	default:
		return "triangle-parallel"
	}
}

// strategySampleSize caps how many triangles the heuristic measures.
const strategySampleSize = 50

// mixedAreaFraction is the per-triangle screen-area fraction above which
// the mixed strategy treats a triangle as "large".
const mixedAreaFraction = 0.001

// screenArea2 returns twice the screen-space area of record r.
func screenArea2(r *TriangleRecord) float64 {
	a := (r.Screen[1].X-r.Screen[0].X)*(r.Screen[2].Y-r.Screen[0].Y) -
		(r.Screen[1].Y-r.Screen[0].Y)*(r.Screen[2].X-r.Screen[0].X)
	if a < 0 {
		a = -a
	}
	return a
}

// ChooseStrategy inspects the triangle workload and picks a decomposition.
// It samples the leading triangles' screen areas rather than measuring the
// whole list; the decision only has to be roughly right.
func ChooseStrategy(tris []TriangleRecord, width, height int) Strategy {
	n := len(tris)
	if n == 0 {
		return TriangleParallel
	}

	sample := min(n, strategySampleSize)
	var total float64
	for i := range sample {
		total += screenArea2(&tris[i]) / 2
	}
	avgArea := total / float64(sample)

	if avgArea > 500 || n < 100 {
		return PixelParallel
	}

	screen := float64(width) * float64(height)
	if n > 2000 && screen > 0 && avgArea > 0.0005*screen {
		return Mixed
	}

	return TriangleParallel
}
