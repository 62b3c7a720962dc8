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


package model

import (
	"encoding/json"
	"fmt"
	"io"
	"github.com/astrobits/deblend/internal/conv"
	"github.com/astrobits/deblend/internal/grad"
	"github.com/astrobits/deblend/internal/img"
	"github.com/astrobits/deblend/internal/psf"
	"github.com/astrobits/deblend/internal/scene"
)

// A PSF specification, polymorphic over generator types for JSON scenes.
// Exactly one variant applies, selected by Type.
type PSFSpec struct {
	Type    string      `json:"type"`              // "gaussian", "moffat" or "explicit"
	Sigma   float32     `json:"sigma,omitempty"`   // gaussian: standard deviation in pixels
	Radius  int         `json:"radius,omitempty"`  // moffat: kernel half-width in pixels
	Alpha   float32     `json:"alpha,omitempty"`   // moffat: core width
	Beta    float32     `json:"beta,omitempty"`    // moffat: power
	Weights [][]float32 `json:"weights,omitempty"` // explicit: 2D kernel weights, odd-sized
	Center  []int       `json:"center,omitempty"`  // explicit: optional (row,col) center
}

// Builds the kernel described by the spec
func (p *PSFSpec) Kernel() (*psf.Kernel, error) {
	switch p.Type {
	case "gaussian":
		return psf.NewGaussianKernel(p.Sigma)
	case "moffat":
		return psf.NewMoffatKernel(p.Radius, p.Alpha, p.Beta)
	case "explicit":
		if p.Center!=nil {
			if len(p.Center)!=2 { return nil, &img.ShapeError{Want: 2, Got: len(p.Center), What: "PSF center"} }
			return psf.NewKernelWithCenter(p.Weights, p.Center[0], p.Center[1])
		}
		return psf.NewKernel(p.Weights)
	}
	return nil, fmt.Errorf("unknown PSF type '%s'", p.Type)
}

// A full scene: canvas shape, PSF, sources, and optionally the observed
// data and per-pixel weights needed for loss and gradients. Serializes
// to/from JSON for configuration files and the REST API.
type Scene struct {
	Bands    int             `json:"bands"`
	Height   int             `json:"height"`
	Width    int             `json:"width"`
	PSF      *PSFSpec        `json:"psf"`
	Sources  []*scene.Source `json:"sources"`
	Observed []float32       `json:"observed,omitempty"` // Flat band-major data, length Bands*Height*Width
	Weights  []float32       `json:"weights,omitempty"`  // Flat band-major weights, same length, optional

	kernel   *psf.Kernel     // Materialized PSF, built on first use
}

// Reads a scene from JSON
func NewSceneFromJSON(r io.Reader) (*Scene, error) {
	sc:=&Scene{}
	if err:=json.NewDecoder(r).Decode(sc); err!=nil { return nil, err }
	if err:=sc.Validate(); err!=nil { return nil, err }
	return sc, nil
}

// Validates the scene: positive canvas dimensions, a PSF, and observed data
// and weights of exactly canvas length when present. Runs eagerly on every
// entry path, so the passes below never index past a short buffer or make a
// negative-sized canvas.
func (sc *Scene) Validate() error {
	if sc.Bands<1 || sc.Height<1 || sc.Width<1 {
		return fmt.Errorf("scene canvas %dx%dx%d must have positive dimensions", sc.Bands, sc.Height, sc.Width)
	}
	if sc.PSF==nil { return fmt.Errorf("scene is missing a PSF") }
	pixels:=sc.Bands*sc.Height*sc.Width
	if sc.Observed!=nil && len(sc.Observed)!=pixels {
		return &img.ShapeError{Want: pixels, Got: len(sc.Observed), What: "observed data"}
	}
	if sc.Weights!=nil && len(sc.Weights)!=pixels {
		return &img.ShapeError{Want: pixels, Got: len(sc.Weights), What: "pixel weights"}
	}
	return nil
}

// Returns the scene's PSF kernel, materializing it on first use
func (sc *Scene) Kernel() (*psf.Kernel, error) {
	if sc.kernel==nil {
		k, err:=sc.PSF.Kernel()
		if err!=nil { return nil, err }
		sc.kernel=k
	}
	return sc.kernel, nil
}

// Returns the observed data as an image, or nil if the scene has none
func (sc *Scene) ObservedImage() *img.Image {
	if sc.Observed==nil { return nil }
	return img.NewImageFromData(sc.Bands, sc.Height, sc.Width, sc.Observed)
}

// Returns the per-pixel weights as an image, or nil for uniform weights
func (sc *Scene) WeightImage() *img.Image {
	if sc.Weights==nil { return nil }
	return img.NewImageFromData(sc.Bands, sc.Height, sc.Width, sc.Weights)
}

// Renders the scene: composes all sources into the full model and convolves
// it with the PSF into the observed frame. Returns the rendered model, the
// un-convolved full model and the source bounding boxes in source order.
func (sc *Scene) Render(c *Context) (rendered, full *img.Image, boxes []img.Box, err error) {
	if err:=sc.Validate(); err!=nil { return nil, nil, nil, err }
	kernel, err:=sc.Kernel()
	if err!=nil { return nil, nil, nil, err }
	geometry:=psf.CachedGeometry(kernel)

	full, boxes, err=scene.Compose(sc.Bands, sc.Height, sc.Width, sc.Sources)
	if err!=nil { return nil, nil, nil, err }
	rendered=conv.Convolve(full, geometry, c.MaxThreads)
	fmt.Fprintf(c.Log, "Rendered %s model from %d sources with %dx%d PSF\n",
	            rendered.DimensionsToString(), len(sc.Sources), kernel.Height, kernel.Width)
	return rendered, full, boxes, nil
}

// Computes the weighted squared-error loss of the rendered scene against
// the observed data
func (sc *Scene) Loss(c *Context) (float32, error) {
	if err:=sc.Validate(); err!=nil { return 0, err }
	data:=sc.ObservedImage()
	if data==nil { return 0, fmt.Errorf("scene has no observed data to compute a loss against") }
	rendered, _, _, err:=sc.Render(c)
	if err!=nil { return 0, err }
	return grad.Loss(data, rendered, sc.WeightImage()), nil
}

// Computes per-source gradients of the loss with respect to the full model,
// restricted to each source's bounding box. Chooses between full-image
// backprop-then-extract and the windowed box method based on how small the
// combined boxes are relative to the canvas; both produce identical output.
// Returns the gradients in source order, plus the scalar loss.
func (sc *Scene) Gradients(c *Context) ([]*img.Image, float32, error) {
	if err:=sc.Validate(); err!=nil { return nil, 0, err }
	data:=sc.ObservedImage()
	if data==nil { return nil, 0, fmt.Errorf("scene has no observed data to compute gradients against") }
	rendered, _, boxes, err:=sc.Render(c)
	if err!=nil { return nil, 0, err }

	kernel, _:=sc.Kernel()
	geometry:=psf.CachedGeometry(kernel)
	weights:=sc.WeightImage()
	loss:=grad.Loss(data, rendered, weights)
	gradRendered:=grad.LossGradient(data, rendered, weights)

	boxArea:=0
	for _,b:=range boxes { boxArea+=b.Height()*b.Width() }
	if boxArea*4 < sc.Height*sc.Width {
		fmt.Fprintf(c.Log, "Backpropagating with box method over %d px of %d\n", boxArea, sc.Height*sc.Width)
		return grad.BoxGradients(gradRendered, geometry, boxes, c.MaxThreads), loss, nil
	}
	fmt.Fprintf(c.Log, "Backpropagating over the full %s gradient\n", gradRendered.DimensionsToString())
	fullGrad:=grad.Backprop(gradRendered, geometry, c.MaxThreads)
	return grad.Extract(fullGrad, boxes), loss, nil
}
