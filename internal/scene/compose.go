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


package scene

import (
	"fmt"
	"github.com/astrobits/deblend/internal/img"
)

// A source's bounding box does not fit within the target canvas
type OutOfBoundsError struct {
	Source int      // Index of the offending source, in supplied order
	Box    img.Box  // Its bounding box
	Height int      // Canvas height
	Width  int      // Canvas width
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("source %d box %v exceeds %dx%d canvas", e.Source, e.Box, e.Height, e.Width)
}

// Composes the full model: the sum over all sources of the outer product of
// color vector and shape patch, accumulated into a shared canvas at each
// source's bounding box. Overlapping sources add, they never overwrite.
// Returns the canvas and the bounding boxes in supplied order.
//
// A box that falls partially or fully outside the canvas fails with
// OutOfBoundsError before any pixel is written. Silently clipping would
// corrupt the flux accounting near image edges, so the whole composition is
// rejected instead. Validation happens here, eagerly, keeping the
// accumulation loops free of bounds checks.
func Compose(bands, height, width int, sources []*Source) (*img.Image, []img.Box, error) {
	if bands<1 || height<1 || width<1 {
		return nil, nil, fmt.Errorf("canvas dimensions %dx%dx%d must be positive", bands, height, width)
	}
	boxes:=make([]img.Box, len(sources))
	for i,s:=range sources {
		if err:=s.Validate(bands); err!=nil { return nil, nil, err }
		boxes[i]=s.Box()
		if !boxes[i].In(height, width) {
			return nil, nil, &OutOfBoundsError{Source: i, Box: boxes[i], Height: height, Width: width}
		}
	}

	// Accumulation into the shared canvas is serialized: sources may overlap,
	// so concurrent adds would race. The convolution that follows dominates
	// the runtime; composition is O(total box area).
	canvas:=img.NewImage(bands, height, width)
	for i,s:=range sources {
		paintSource(canvas, s, boxes[i])
	}
	return canvas, boxes, nil
}

// Adds one source's color x shape outer product into the canvas at its box
func paintSource(canvas *img.Image, s *Source, box img.Box) {
	for b,c:=range s.Color {
		if c==0 { continue }
		plane:=canvas.Channel(b)
		for y:=box.Y0; y<box.Y1; y++ {
			row:=s.Shape[y-box.Y0]
			dst:=plane[y*canvas.Width+box.X0 : y*canvas.Width+box.X1]
			for x,v:=range row {
				dst[x]+=c*v
			}
		}
	}
}
