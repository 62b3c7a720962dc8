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


package img

import (
	"fmt"
)

// A rectangular pixel region, half-open: rows [Y0,Y1), columns [X0,X1)
type Box struct {
	Y0 int `json:"y0"`
	Y1 int `json:"y1"`
	X0 int `json:"x0"`
	X1 int `json:"x1"`
}

func (b Box) Height() int { return b.Y1-b.Y0 }
func (b Box) Width()  int { return b.X1-b.X0 }

// Returns true if the box lies fully within a canvas of the given dimensions
func (b Box) In(height, width int) bool {
	return b.Y0>=0 && b.X0>=0 && b.Y1<=height && b.X1<=width && b.Y0<=b.Y1 && b.X0<=b.X1
}

// Clamps the box to a canvas of the given dimensions
func (b Box) Clamp(height, width int) Box {
	if b.Y0<0      { b.Y0=0      }
	if b.X0<0      { b.X0=0      }
	if b.Y1>height { b.Y1=height }
	if b.X1>width  { b.X1=width  }
	return b
}

// Grows the box by the given radii on every side
func (b Box) Grow(yRadius, xRadius int) Box {
	return Box{b.Y0-yRadius, b.Y1+yRadius, b.X0-xRadius, b.X1+xRadius}
}

func (b Box) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", b.Y0, b.Y1, b.X0, b.X1)
}
