package world

// Position is the world-space center of a ball entity.
type Position struct {
	X, Y float32
}

// BallRadius is the world-space radius of a ball entity.
type BallRadius struct {
	Value float32
}

// BallColor is the RGBA tint of a ball entity.
type BallColor struct {
	R, G, B, A float32
}

// BallCluster groups ball entities for shared rendering effects.
type BallCluster struct {
	ID int32
}
