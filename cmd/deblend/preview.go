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


package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"

	"github.com/astrobits/deblend/internal/img"
)

// Writes an 8-bit JPEG or 16-bit TIFF preview of a rendered model, chosen
// by file suffix. Linear flux is normalized to the common [0,1] range
// across bands and mapped through sRGB. Single-band images render gray;
// for more than three bands the first three map to RGB.
func writePreview(f *img.Image, fileName string) error {
	fnLower:=strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(fnLower, ".jpg") || strings.HasSuffix(fnLower, ".jpeg"):
		return writeJPG(f, fileName, 95)
	case strings.HasSuffix(fnLower, ".tif") || strings.HasSuffix(fnLower, ".tiff"):
		return writeTIFF16(f, fileName)
	}
	return fmt.Errorf("unknown preview suffix in %s, expected .jpg or .tif", fileName)
}

// Calculates the common normalization factors to [0..1] across all bands
func commonNormalizationFactors(f *img.Image) (min, mult float32) {
	stats:=img.NewBasicStats(f.Channel(0))
	min, max:=stats.Min, stats.Max
	for b:=1; b<f.Bands; b++ {
		s:=img.NewBasicStats(f.Channel(b))
		if s.Min<min { min=s.Min }
		if s.Max>max { max=s.Max }
	}
	if max==min { return min, 0 }
	return min, 1/(max-min)
}

// Maps the pixel at (y,x) to a display color via linear RGB
func pixelColor(f *img.Image, y, x int, min, mult float32) colorful.Color {
	var r, g, b float32
	if f.Bands>=3 {
		r=(f.At(0,y,x)-min)*mult
		g=(f.At(1,y,x)-min)*mult
		b=(f.At(2,y,x)-min)*mult
	} else {
		r=(f.At(0,y,x)-min)*mult
		g, b=r, r
	}
	return colorful.LinearRgb(float64(r), float64(g), float64(b)).Clamped()
}

func writeJPG(f *img.Image, fileName string, quality int) error {
	min, mult:=commonNormalizationFactors(f)
	rgba:=image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y:=0; y<f.Height; y++ {
		for x:=0; x<f.Width; x++ {
			cr, cg, cb:=pixelColor(f, y, x, min, mult).RGB255()
			rgba.SetRGBA(x, y, color.RGBA{R: cr, G: cg, B: cb, A: 255})
		}
	}
	writer, err:=os.Create(fileName)
	if err!=nil { return err }
	defer writer.Close()
	return jpeg.Encode(writer, rgba, &jpeg.Options{Quality: quality})
}

func writeTIFF16(f *img.Image, fileName string) error {
	min, mult:=commonNormalizationFactors(f)
	rgba:=image.NewRGBA64(image.Rect(0, 0, f.Width, f.Height))
	for y:=0; y<f.Height; y++ {
		for x:=0; x<f.Width; x++ {
			col:=pixelColor(f, y, x, min, mult)
			rgba.SetRGBA64(x, y, color.RGBA64{
				R: uint16(col.R*65535+0.5),
				G: uint16(col.G*65535+0.5),
				B: uint16(col.B*65535+0.5),
				A: 65535,
			})
		}
	}
	writer, err:=os.Create(fileName)
	if err!=nil { return err }
	defer writer.Close()
	return tiff.Encode(writer, rgba, &tiff.Options{Compression: tiff.Uncompressed, Predictor: false})
}
