package shaders

import (
	_ "embed"
)

//go:embed particles.wgsl
var ParticlesWGSL string

//go:embed surface.wgsl
var SurfaceWGSL string

//go:embed text.wgsl
var TextWGSL string
