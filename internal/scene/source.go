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

// A localized emitting source, modeled as the outer product of a per-band
// color vector and a small 2D shape patch placed at an integer pixel center.
// The core treats a source as an immutable input for one forward/backward
// pass; the surrounding optimizer owns its parameters between passes.
type Source struct {
	Color   []float32   `json:"color"`   // Per-band brightness scaling, length = number of bands
	Shape   [][]float32 `json:"shape"`   // Local shape patch, odd-sized in both dimensions
	CenterY int         `json:"centerY"` // Placement center row in full-image coordinates
	CenterX int         `json:"centerX"` // Placement center column in full-image coordinates
}

// Returns the source's bounding box: the patch centered on (CenterY,CenterX)
// using patch radius (size-1)/2 per side. Box size equals the patch size.
func (s *Source) Box() img.Box {
	h, w:=len(s.Shape), 0
	if h>0 { w=len(s.Shape[0]) }
	y0:=s.CenterY-(h-1)/2
	x0:=s.CenterX-(w-1)/2
	return img.Box{Y0: y0, Y1: y0+h, X0: x0, X1: x0+w}
}

// Validates the source against the given band count: the color vector must
// have one entry per band, and the shape patch must be rectangular with odd
// dimensions so its center pixel is unambiguous.
func (s *Source) Validate(bands int) error {
	if len(s.Color)!=bands {
		return &img.ShapeError{Want: bands, Got: len(s.Color), What: "source color vector"}
	}
	h:=len(s.Shape)
	if h==0 { return &img.ShapeError{Want: 2, Got: 1, What: "source shape patch"} }
	w:=len(s.Shape[0])
	for _,row:=range s.Shape {
		if len(row)!=w {
			return &img.ShapeError{Want: w, Got: len(row), What: "source shape patch row"}
		}
	}
	if h%2==0 || w%2==0 {
		return fmt.Errorf("source shape patch %dx%d must be odd-sized in both dimensions", h, w)
	}
	return nil
}
