// Copyright (C) 2026 The deblend authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package conv

import (
	"github.com/astrobits/deblend/internal/img"
	"github.com/astrobits/deblend/internal/psf"
)

// Applies the kernel described by the given geometry to every band of the
// image independently, and returns a newly allocated result of the same
// shape. The kernel is consumed exactly as given; callers pass the adjoint
// geometry for the backward pass, the engine performs no implicit flip.
//
// Boundary handling truncates the kernel: cells whose shifted read would
// leave the image contribute zero for those output pixels. The result
// matches a zero-padded convolution cropped to the original extent, bit for
// bit, because per output pixel the same products accumulate in the same
// kernel cell order. The inner loops contain no bounds checks; the clip
// extents were validated when the geometry was derived.
//
// Bands are independent and fan out across up to maxThreads goroutines.
func Convolve(f *img.Image, g *psf.Geometry, maxThreads int) *img.Image {
	res:=img.NewImage(f.Bands, f.Height, f.Width)
	if maxThreads<1 { maxThreads=1 }

	limiter:=make(chan bool, maxThreads)
	for b:=0; b<f.Bands; b++ {
		limiter <- true
		go func(b int) {
			defer func() { <-limiter }()
			convolveBand(res.Channel(b), f.Channel(b), f.Height, f.Width, g)
		}(b)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	return res
}

// Convolves a single band. For each kernel cell, accumulates the weighted,
// shifted image over the precomputed in-bounds output rectangle.
func convolveBand(res, data []float32, height, width int, g *psf.Geometry) {
	for i, weight:=range g.Weights {
		if weight==0 { continue }
		dy, dx   :=g.OffY[i],   g.OffX[i]
		yLo, yHi :=g.YStart[i], height-g.YEnd[i]
		xLo, xHi :=g.XStart[i], width -g.XEnd[i]
		for y:=yLo; y<yHi; y++ {
			srcRow:=(y+dy)*width+dx
			dstRow:=y*width
			for x:=xLo; x<xHi; x++ {
				res[dstRow+x]+=weight*data[srcRow+x]
			}
		}
	}
}

// Applies the kernel to the image, evaluating only the output pixels inside
// the given box. The full image remains the read source, so results for the
// retained pixels equal the corresponding slice of Convolve exactly. The
// box is clamped to the canvas; clamped edges coincide with image edges,
// where the same boundary truncation applies either way.
//
// Returns a box-shaped image (bands x box height x box width).
func ConvolveRegion(f *img.Image, g *psf.Geometry, box img.Box) *img.Image {
	box=box.Clamp(f.Height, f.Width)
	bh, bw:=box.Height(), box.Width()
	res:=img.NewImage(f.Bands, bh, bw)
	for b:=0; b<f.Bands; b++ {
		convolveRegionBand(res.Channel(b), f.Channel(b), f.Height, f.Width, g, box)
	}
	return res
}

func convolveRegionBand(res, data []float32, height, width int, g *psf.Geometry, box img.Box) {
	bw:=box.Width()
	for i, weight:=range g.Weights {
		if weight==0 { continue }
		dy, dx:=g.OffY[i], g.OffX[i]
		yLo, yHi:=maxInt(box.Y0, g.YStart[i]), minInt(box.Y1, height-g.YEnd[i])
		xLo, xHi:=maxInt(box.X0, g.XStart[i]), minInt(box.X1, width -g.XEnd[i])
		for y:=yLo; y<yHi; y++ {
			srcRow:=(y+dy)*width+dx
			dstRow:=(y-box.Y0)*bw-box.X0
			for x:=xLo; x<xHi; x++ {
				res[dstRow+x]+=weight*data[srcRow+x]
			}
		}
	}
}

func minInt(a, b int) int { if a<b { return a }; return b }
func maxInt(a, b int) int { if a>b { return a }; return b }
