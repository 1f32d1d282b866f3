// package coordinates provides the mapping between authoritative world space and the
// discrete texture grid the compute passes write into. A mapper is immutable once built;
// reconfiguring the view means building a new mapper and handing it to the packer.
package coordinates

import (
	"fmt"
)

// coordinateMapper is the implementation of the CoordinateMapper interface.
// All fields are fixed at construction; every method is pure and safe for concurrent use.
type coordinateMapper struct {
	// textureSize is the output texture extent in pixels.
	textureSize [2]float32
	// worldMin and worldMax bound the world-space region mapped onto the texture.
	worldMin, worldMax [2]float32
	// worldSize is worldMax - worldMin, validated strictly positive on both axes.
	worldSize [2]float32
}

// CoordinateMapper converts between world-space positions/radii and texture-pixel space.
// All operations are pure; no method mutates the mapper.
type CoordinateMapper interface {
	// WorldToTexture converts a world-space position to texture-pixel space.
	// The result is not clamped; callers needing bounded output should clamp the
	// world point first via ClampWorld.
	//
	// Parameters:
	//   - world: the world-space position to convert
	//
	// Returns:
	//   - [2]float32: the equivalent position in texture-pixel space
	WorldToTexture(world [2]float32) [2]float32

	// WorldRadiusToTexture converts a world-space radius to pixel units using the
	// horizontal axis scale.
	//
	// Parameters:
	//   - r: the world-space radius to convert
	//
	// Returns:
	//   - float32: the equivalent radius in pixels
	WorldRadiusToTexture(r float32) float32

	// TextureToUV converts a texture-pixel position to normalized [0,1] UV space.
	// No clamping is applied.
	//
	// Parameters:
	//   - texture: the texture-pixel position to convert
	//
	// Returns:
	//   - [2]float32: the normalized UV coordinates
	TextureToUV(texture [2]float32) [2]float32

	// ClampWorld clamps a world-space position to the mapper's world bounds,
	// each axis independently.
	//
	// Parameters:
	//   - world: the world-space position to clamp
	//
	// Returns:
	//   - [2]float32: the clamped position
	ClampWorld(world [2]float32) [2]float32

	// TextureSize returns the texture extent in pixels.
	//
	// Returns:
	//   - [2]float32: the texture width and height
	TextureSize() [2]float32

	// WorldBounds returns the world-space region this mapper covers.
	//
	// Returns:
	//   - [2]float32: the minimum corner of the world bounds
	//   - [2]float32: the maximum corner of the world bounds
	WorldBounds() ([2]float32, [2]float32)
}

var _ CoordinateMapper = &coordinateMapper{}

// NewCoordinateMapper is the entry point to create a new CoordinateMapper. The texture
// dimensions are required; world bounds default to the texture extent anchored at the
// origin and can be overridden with builder options.
//
// Parameters:
//   - textureWidth: the output texture width in pixels (must be > 0)
//   - textureHeight: the output texture height in pixels (must be > 0)
//   - opts: a variadic list of CoordinateMapperBuilderOption functions to configure the mapper
//
// Returns:
//   - CoordinateMapper: a new CoordinateMapper instance
//   - error: error if the texture dimensions or world bounds are degenerate
func NewCoordinateMapper(textureWidth, textureHeight uint32, opts ...CoordinateMapperBuilderOption) (CoordinateMapper, error) {
	if textureWidth == 0 || textureHeight == 0 {
		return nil, fmt.Errorf("texture dimensions must be non-zero, got %dx%d", textureWidth, textureHeight)
	}

	m := &coordinateMapper{
		textureSize: [2]float32{float32(textureWidth), float32(textureHeight)},
		worldMin:    [2]float32{0, 0},
		worldMax:    [2]float32{float32(textureWidth), float32(textureHeight)},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.worldSize = [2]float32{m.worldMax[0] - m.worldMin[0], m.worldMax[1] - m.worldMin[1]}
	if m.worldSize[0] <= 0 || m.worldSize[1] <= 0 {
		return nil, fmt.Errorf("world bounds must have positive extent on both axes, got min=%v max=%v", m.worldMin, m.worldMax)
	}

	return m, nil
}

func (m *coordinateMapper) WorldToTexture(world [2]float32) [2]float32 {
	return [2]float32{
		(world[0] - m.worldMin[0]) / m.worldSize[0] * m.textureSize[0],
		(world[1] - m.worldMin[1]) / m.worldSize[1] * m.textureSize[1],
	}
}

func (m *coordinateMapper) WorldRadiusToTexture(r float32) float32 {
	return r * m.textureSize[0] / m.worldSize[0]
}

func (m *coordinateMapper) TextureToUV(texture [2]float32) [2]float32 {
	return [2]float32{
		texture[0] / m.textureSize[0],
		texture[1] / m.textureSize[1],
	}
}

func (m *coordinateMapper) ClampWorld(world [2]float32) [2]float32 {
	return [2]float32{
		min(max(world[0], m.worldMin[0]), m.worldMax[0]),
		min(max(world[1], m.worldMin[1]), m.worldMax[1]),
	}
}

func (m *coordinateMapper) TextureSize() [2]float32 {
	return m.textureSize
}

func (m *coordinateMapper) WorldBounds() ([2]float32, [2]float32) {
	return m.worldMin, m.worldMax
}
