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
	"strings"
)

// A multi-band image. Pixel data is stored in a single flat array,
// band-major: Data[(band*Height + y)*Width + x]. All bands of a scene
// share one float32 precision; no implicit promotion happens mid-pipeline.
type Image struct {
	Bands  int        // Number of color bands (e.g. 3)
	Height int        // Rows of each band
	Width  int        // Columns of each band

	Data   []float32  // The pixel data, length Bands*Height*Width
}

// Creates a zero-filled image of the given dimensions
func NewImage(bands, height, width int) *Image {
	return &Image{
		Bands : bands,
		Height: height,
		Width : width,
		Data  : make([]float32, bands*height*width),
	}
}

// Creates an image of the given dimensions around existing data.
// Data is not copied; allocated if nil
func NewImageFromData(bands, height, width int, data []float32) *Image {
	if data==nil {
		data=make([]float32, bands*height*width)
	}
	return &Image{
		Bands : bands,
		Height: height,
		Width : width,
		Data  : data,
	}
}

// Returns the number of pixels across all bands
func (f *Image) Pixels() int { return f.Bands*f.Height*f.Width }

// Returns the data slice for a single band
func (f *Image) Channel(band int) []float32 {
	plane:=f.Height*f.Width
	return f.Data[band*plane : (band+1)*plane]
}

// Returns the pixel value at (band, y, x)
func (f *Image) At(band, y, x int) float32 {
	return f.Data[(band*f.Height+y)*f.Width+x]
}

// Creates a deep copy of the image
func (f *Image) Clone() *Image {
	res:=NewImage(f.Bands, f.Height, f.Width)
	copy(res.Data, f.Data)
	return res
}

// Returns true if both images have identical dimensions
func EqualShape(a, b *Image) bool {
	return a.Bands==b.Bands && a.Height==b.Height && a.Width==b.Width
}

func (f *Image) DimensionsToString() string {
	b:=strings.Builder{}
	fmt.Fprintf(&b, "%dx%dx%d", f.Bands, f.Height, f.Width)
	return b.String()
}

// An array of the wrong rank was supplied where a fixed rank is required
type ShapeError struct {
	Want int   // required rank or length
	Got  int   // supplied rank or length
	What string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s must have %d dimensions, got %d", e.What, e.Want, e.Got)
}
