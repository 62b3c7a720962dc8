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


package grad

import (
	"github.com/astrobits/deblend/internal/conv"
	"github.com/astrobits/deblend/internal/img"
	"github.com/astrobits/deblend/internal/psf"
)

// Propagates the gradient of the loss with respect to the rendered model
// back to the un-convolved full model, by convolving with the forward
// kernel reversed along both spatial axes. Convolving with the flipped
// kernel is the adjoint of the forward convolution, which is the correct
// backpropagation rule for any linear operator under squared-error loss.
// Takes the forward geometry; the flip happens here, not in the engine.
func Backprop(gradRendered *img.Image, forward *psf.Geometry, maxThreads int) *img.Image {
	return conv.Convolve(gradRendered, forward.Adjoint(), maxThreads)
}

// Slices the full-image model gradient down to each source's bounding box.
// Returns one box-shaped image per box, in supplied order, for the external
// parameter updater to combine with each source's local sensitivities.
func Extract(fullGrad *img.Image, boxes []img.Box) []*img.Image {
	res:=make([]*img.Image, len(boxes))
	for i,box:=range boxes {
		res[i]=extractBox(fullGrad, box)
	}
	return res
}

func extractBox(f *img.Image, box img.Box) *img.Image {
	bh, bw:=box.Height(), box.Width()
	res:=img.NewImage(f.Bands, bh, bw)
	for b:=0; b<f.Bands; b++ {
		src:=f.Channel(b)
		dst:=res.Channel(b)
		for y:=box.Y0; y<box.Y1; y++ {
			copy(dst[(y-box.Y0)*bw:(y-box.Y0+1)*bw], src[y*f.Width+box.X0 : y*f.Width+box.X1])
		}
	}
	return res
}

// The box method: computes each source's local model gradient without ever
// convolving the full image. The adjoint convolution is evaluated only on
// the output pixels of each source's box, reading the rendered-model
// gradient within the kernel-enlarged window around it. Work per source is
// O(box area x kernel area) instead of O(image area x kernel area).
//
// The result equals Extract(Backprop(...), boxes) exactly: the windowed
// engine reads the same full gradient image and accumulates the same
// products in the same kernel cell order per pixel.
//
// Sources are independent here, each writes its own output, so they fan out
// across up to maxThreads goroutines.
func BoxGradients(gradRendered *img.Image, forward *psf.Geometry, boxes []img.Box, maxThreads int) []*img.Image {
	adjoint:=forward.Adjoint()
	res:=make([]*img.Image, len(boxes))
	if maxThreads<1 { maxThreads=1 }

	limiter:=make(chan bool, maxThreads)
	for i,box:=range boxes {
		limiter <- true
		go func(i int, box img.Box) {
			defer func() { <-limiter }()
			res[i]=conv.ConvolveRegion(gradRendered, adjoint, box)
		}(i, box)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	return res
}
