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
	"testing"
	"github.com/valyala/fastrand"
	"github.com/astrobits/deblend/internal/img"
	"github.com/astrobits/deblend/internal/psf"
)

// Reference implementation: zero-pad the image conceptually and correlate,
// reading zero outside the canvas, then keep the original extent. Per
// output pixel this accumulates over kernel cells in the same row-major
// order as the engine, so results must match bit for bit.
func referenceConvolve(f *img.Image, g *psf.Geometry) *img.Image {
	res:=img.NewImage(f.Bands, f.Height, f.Width)
	for b:=0; b<f.Bands; b++ {
		src:=f.Channel(b)
		dst:=res.Channel(b)
		for y:=0; y<f.Height; y++ {
			for x:=0; x<f.Width; x++ {
				sum:=float32(0)
				for i,w:=range g.Weights {
					sy, sx:=y+g.OffY[i], x+g.OffX[i]
					if sy<0 || sy>=f.Height || sx<0 || sx>=f.Width { continue }
					sum+=w*src[sy*f.Width+sx]
				}
				dst[y*f.Width+x]=sum
			}
		}
	}
	return res
}

func testKernels(t *testing.T) []*psf.Kernel {
	asym, err:=psf.NewKernel([][]float32{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
		{0.7, 0.8, 0.9},
	})
	if err!=nil { t.Fatal(err) }
	row, err:=psf.NewKernel([][]float32{{0.25, 0.5, 0.25}})
	if err!=nil { t.Fatal(err) }
	tall, err:=psf.NewKernel([][]float32{
		{0.1, 0.0, 0.2},
		{0.3, 0.9, 0.1},
		{0.0, 0.4, 0.0},
		{0.2, 0.1, 0.3},
		{0.1, 0.2, 0.1},
	})
	if err!=nil { t.Fatal(err) }
	corner, err:=psf.NewKernelWithCenter([][]float32{
		{0.5, 0.25},
		{0.125, 0.125},
	}, 0, 1)
	if err!=nil { t.Fatal(err) }
	return []*psf.Kernel{asym, row, tall, corner}
}

// A single unit impulse at every image position, including all four corners
// and edges, must match the truncated-kernel reference exactly.
func TestConvolveImpulses(t *testing.T) {
	height, width:=6, 7
	for ki,k:=range testKernels(t) {
		g:=psf.NewGeometry(k)
		for y:=0; y<height; y++ {
			for x:=0; x<width; x++ {
				f:=img.NewImage(1, height, width)
				f.Data[y*width+x]=2.5
				got:=Convolve(f, g, 1)
				want:=referenceConvolve(f, g)
				for i:=range want.Data {
					if got.Data[i]!=want.Data[i] {
						t.Fatalf("kernel %d impulse (%d,%d): out[%d]=%g; want %g",
						         ki, y, x, i, got.Data[i], want.Data[i])
					}
				}
			}
		}
	}
}

func randomImage(bands, height, width int, seed uint32) *img.Image {
	rng:=fastrand.RNG{}
	rng.Seed(seed)
	f:=img.NewImage(bands, height, width)
	for i:=range f.Data {
		f.Data[i]=float32(rng.Uint32n(1<<20))/float32(1<<20)
	}
	return f
}

func TestConvolveRandomMultiBand(t *testing.T) {
	f:=randomImage(3, 16, 13, 42)
	for ki,k:=range testKernels(t) {
		g:=psf.NewGeometry(k)
		got:=Convolve(f, g, 4)
		want:=referenceConvolve(f, g)
		for i:=range want.Data {
			if got.Data[i]!=want.Data[i] {
				t.Fatalf("kernel %d: out[%d]=%g; want %g", ki, i, got.Data[i], want.Data[i])
			}
		}
	}
}

// Repeated invocation with identical inputs must be bit-identical,
// regardless of the band fan-out
func TestConvolveDeterministic(t *testing.T) {
	f:=randomImage(4, 24, 21, 7)
	k, err:=psf.NewGaussianKernel(1.5)
	if err!=nil { t.Fatal(err) }
	g:=psf.NewGeometry(k)
	first:=Convolve(f, g, 4)
	for run:=0; run<3; run++ {
		again:=Convolve(f, g, 4)
		for i:=range first.Data {
			if again.Data[i]!=first.Data[i] {
				t.Fatalf("run %d: out[%d]=%g; want %g", run, i, again.Data[i], first.Data[i])
			}
		}
	}
}

// The windowed engine must equal the corresponding slice of the full
// convolution exactly, for interior boxes and boxes touching every edge
func TestConvolveRegionEqualsSlice(t *testing.T) {
	f:=randomImage(3, 14, 11, 99)
	boxes:=[]img.Box{
		{Y0: 4, Y1: 9, X0: 3, X1: 8},     // interior
		{Y0: 0, Y1: 3, X0: 0, X1: 4},     // top-left corner
		{Y0: 11, Y1: 14, X0: 8, X1: 11},  // bottom-right corner
		{Y0: 0, Y1: 14, X0: 0, X1: 11},   // the whole canvas
		{Y0: -2, Y1: 5, X0: 9, X1: 13},   // clamped to the canvas
	}
	for ki,k:=range testKernels(t) {
		g:=psf.NewGeometry(k)
		full:=Convolve(f, g, 1)
		for bi,box:=range boxes {
			got:=ConvolveRegion(f, g, box)
			clamped:=box.Clamp(f.Height, f.Width)
			for b:=0; b<f.Bands; b++ {
				for y:=clamped.Y0; y<clamped.Y1; y++ {
					for x:=clamped.X0; x<clamped.X1; x++ {
						want:=full.At(b, y, x)
						have:=got.At(b, y-clamped.Y0, x-clamped.X0)
						if have!=want {
							t.Fatalf("kernel %d box %d at (%d,%d,%d): %g; want %g", ki, bi, b, y, x, have, want)
						}
					}
				}
			}
		}
	}
}
