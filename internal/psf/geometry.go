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


package psf

import (
	"sync"
)

// Precomputed per-cell geometry of a kernel: signed read offsets relative
// to the center, and clip extents for evaluation near image boundaries.
//
// The convolution engine computes out[y,x] += Weights[i] * in[y+OffY[i], x+OffX[i]]
// for every cell i, restricted to the output sub-rectangle
// rows [YStart[i], height-YEnd[i]), columns [XStart[i], width-XEnd[i]).
// Cells whose shifted read would leave the image contribute zero for those
// boundary pixels, which matches a zero-padded convolution cropped to the
// original extent. Geometry is pure and depends only on the kernel shape;
// compute once per kernel and reuse.
type Geometry struct {
	Kernel  *Kernel    // The kernel this geometry was derived from

	Weights []float32  // Flattened row-major kernel weights, one per cell
	OffY    []int      // Per-cell read offset rows, relative to the center
	OffX    []int      // Per-cell read offset columns, relative to the center
	YStart  []int      // Per-cell clipped start row of the output rectangle
	YEnd    []int      // Per-cell rows clipped from the end of the output rectangle
	XStart  []int      // Per-cell clipped start column of the output rectangle
	XEnd    []int      // Per-cell columns clipped from the end of the output rectangle

	adjoint *Geometry  // Geometry of the both-axis flipped kernel
}

// Derives the filter geometry for the given kernel
func NewGeometry(k *Kernel) *Geometry {
	g:=newGeometryForward(k)
	g.adjoint=newGeometryForward(k.Flip())
	g.adjoint.adjoint=g
	return g
}

func newGeometryForward(k *Kernel) *Geometry {
	cells:=k.Height*k.Width
	g:=&Geometry{
		Kernel : k,
		Weights: k.Weights,
		OffY   : make([]int, cells),
		OffX   : make([]int, cells),
		YStart : make([]int, cells),
		YEnd   : make([]int, cells),
		XStart : make([]int, cells),
		XEnd   : make([]int, cells),
	}
	i:=0
	for y:=0; y<k.Height; y++ {
		for x:=0; x<k.Width; x++ {
			dy, dx:=y-k.CenterY, x-k.CenterX
			g.OffY[i], g.OffX[i]=dy, dx
			// A negative offset reads above/left of the output pixel and is
			// clipped at the start; a positive offset is clipped at the end.
			g.YStart[i], g.YEnd[i]=clipExtents(dy)
			g.XStart[i], g.XEnd[i]=clipExtents(dx)
			i++
		}
	}
	return g
}

func clipExtents(offset int) (start, end int) {
	if offset<0 { return -offset, 0 }
	return 0, offset
}

// Returns the geometry of the kernel reversed along both axes, the correct
// operator for backpropagating gradients through the forward convolution
func (g *Geometry) Adjoint() *Geometry { return g.adjoint }

// Cache of derived geometries, keyed by kernel identity. Kernels are
// immutable, so a pointer identifies its geometry for the process lifetime.
var geometries=struct{
	sync.RWMutex
	m map[*Kernel]*Geometry
}{m: make(map[*Kernel]*Geometry)}

// Returns the memoized geometry for the given kernel, deriving it on first use
func CachedGeometry(k *Kernel) *Geometry {
	geometries.RLock()
	g:=geometries.m[k]
	geometries.RUnlock()
	if g==nil {
		g=NewGeometry(k)
		geometries.Lock()
		geometries.m[k]=g
		geometries.Unlock()
	}
	return g
}
