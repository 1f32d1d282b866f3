package coordinates

// CoordinateMapperBuilderOption is a functional option used to configure a CoordinateMapper during construction.
type CoordinateMapperBuilderOption func(*coordinateMapper)

// WithWorldBounds sets the world-space region mapped onto the texture.
//
// Parameters:
//   - minX, minY: the minimum corner of the world bounds
//   - maxX, maxY: the maximum corner of the world bounds
//
// Returns:
//   - CoordinateMapperBuilderOption: a function that sets the world bounds for this mapper
func WithWorldBounds(minX, minY, maxX, maxY float32) CoordinateMapperBuilderOption {
	return func(m *coordinateMapper) {
		m.worldMin = [2]float32{minX, minY}
		m.worldMax = [2]float32{maxX, maxY}
	}
}

// WithCenteredWorld sets the world bounds to a region of the given size centered on the origin.
//
// Parameters:
//   - width: the world-space width of the region
//   - height: the world-space height of the region
//
// Returns:
//   - CoordinateMapperBuilderOption: a function that sets the centered world bounds for this mapper
func WithCenteredWorld(width, height float32) CoordinateMapperBuilderOption {
	return func(m *coordinateMapper) {
		m.worldMin = [2]float32{-width / 2, -height / 2}
		m.worldMax = [2]float32{width / 2, height / 2}
	}
}
