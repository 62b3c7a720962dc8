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
	"fmt"
	"github.com/astrobits/deblend/internal/img"
)

// A 2D convolution kernel (point-spread function) with an explicit center
// pixel. Weights are stored row-major. Kernels are treated as immutable
// once created; derived geometry is cached on that assumption.
type Kernel struct {
	Height  int        // Kernel rows
	Width   int        // Kernel columns
	CenterY int        // Center row
	CenterX int        // Center column

	Weights []float32  // Row-major kernel weights, length Height*Width
}

// An even-sized kernel was supplied without an explicit center
type AmbiguousCenterError struct {
	Height int
	Width  int
}

func (e *AmbiguousCenterError) Error() string {
	return fmt.Sprintf("kernel dimensions %dx%d are not both odd, center is ambiguous", e.Height, e.Width)
}

// Creates a kernel from 2D weights with the default center, the exact middle
// cell. Both dimensions must be odd, else fails with AmbiguousCenterError.
// Ragged weight rows fail with ShapeError.
func NewKernel(weights [][]float32) (*Kernel, error) {
	height:=len(weights)
	if height==0 { return nil, &img.ShapeError{Want: 2, Got: 1, What: "kernel"} }
	width:=len(weights[0])
	if height%2==0 || width%2==0 {
		return nil, &AmbiguousCenterError{Height: height, Width: width}
	}
	return NewKernelWithCenter(weights, height/2, width/2)
}

// Creates a kernel from 2D weights with an explicit center. Even dimensions
// are permitted, since the caller resolves the ambiguity.
func NewKernelWithCenter(weights [][]float32, centerY, centerX int) (*Kernel, error) {
	height:=len(weights)
	if height==0 { return nil, &img.ShapeError{Want: 2, Got: 1, What: "kernel"} }
	width:=len(weights[0])
	flat:=make([]float32, 0, height*width)
	for _,row:=range weights {
		if len(row)!=width {
			return nil, &img.ShapeError{Want: width, Got: len(row), What: "kernel row"}
		}
		flat=append(flat, row...)
	}
	if centerY<0 || centerY>=height || centerX<0 || centerX>=width {
		return nil, fmt.Errorf("kernel center (%d,%d) outside %dx%d kernel", centerY, centerX, height, width)
	}
	return &Kernel{Height: height, Width: width, CenterY: centerY, CenterX: centerX, Weights: flat}, nil
}

// Creates a kernel from a flat array with explicit dimensions. The dims
// array must have exactly two entries, else fails with ShapeError. A nil
// center picks the exact middle cell and requires odd dimensions.
func NewKernelFromShape(dims []int, data []float32, center []int) (*Kernel, error) {
	if len(dims)!=2 {
		return nil, &img.ShapeError{Want: 2, Got: len(dims), What: "kernel"}
	}
	height, width:=dims[0], dims[1]
	if len(data)!=height*width {
		return nil, &img.ShapeError{Want: height*width, Got: len(data), What: "kernel data"}
	}
	centerY, centerX:=0, 0
	if center==nil {
		if height%2==0 || width%2==0 {
			return nil, &AmbiguousCenterError{Height: height, Width: width}
		}
		centerY, centerX=height/2, width/2
	} else {
		if len(center)!=2 {
			return nil, &img.ShapeError{Want: 2, Got: len(center), What: "kernel center"}
		}
		centerY, centerX=center[0], center[1]
	}
	if centerY<0 || centerY>=height || centerX<0 || centerX>=width {
		return nil, fmt.Errorf("kernel center (%d,%d) outside %dx%d kernel", centerY, centerX, height, width)
	}
	flat:=append([]float32(nil), data...) // clone, kernels are immutable
	return &Kernel{Height: height, Width: width, CenterY: centerY, CenterX: centerX, Weights: flat}, nil
}

// Returns the kernel reversed along both spatial axes, the adjoint kernel
// for gradient backpropagation through a convolution. The center follows
// the reversal, so for odd kernels it stays the middle cell.
func (k *Kernel) Flip() *Kernel {
	flat:=make([]float32, len(k.Weights))
	for y:=0; y<k.Height; y++ {
		for x:=0; x<k.Width; x++ {
			flat[y*k.Width+x]=k.Weights[(k.Height-1-y)*k.Width+(k.Width-1-x)]
		}
	}
	return &Kernel{
		Height : k.Height,
		Width  : k.Width,
		CenterY: k.Height-1-k.CenterY,
		CenterX: k.Width-1-k.CenterX,
		Weights: flat,
	}
}

// Returns the kernel half-widths below/above the center per axis
func (k *Kernel) Radii() (yBefore, yAfter, xBefore, xAfter int) {
	return k.CenterY, k.Height-1-k.CenterY, k.CenterX, k.Width-1-k.CenterX
}

// Normalizes the kernel weights to sum to one, in place. Used by the
// PSF generators; flux-conserving kernels leave total image flux unchanged
// in the interior.
func (k *Kernel) normalize() {
	sum:=float32(0)
	for _,w:=range k.Weights { sum+=w }
	factor:=1.0/sum
	for i:=range k.Weights { k.Weights[i]*=factor }
}
