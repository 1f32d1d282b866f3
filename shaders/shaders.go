// Package shaders embeds the WGSL kernels used by the metaball pipeline so the
// module is self-contained and requires no asset files at runtime.
package shaders

import _ "embed"

// FieldWGSL is the field + albedo accumulation compute kernel.
//
//go:embed compute_metaballs.wgsl
var FieldWGSL string

// NormalsWGSL is the normals derivation compute kernel.
//
//go:embed compute_3d_normals.wgsl
var NormalsWGSL string

// PresentWGSL is the fullscreen presentation vertex/fragment pair.
//
//go:embed present_fullscreen.wgsl
var PresentWGSL string
