// SPDX-License-Identifier: MIT
package openrgb

// Color is an RGB triple with 8-bit channels.
type Color struct {
	R, G, B uint8
}

// Common frame colors.
var (
	Off = Color{}
	Red = Color{R: 255}
)
