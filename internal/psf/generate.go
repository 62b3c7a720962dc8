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
	"math"
)

const sqrt2=float32(1.41421356237309504880)

// Returns the definite integral of the gaussian function with midpoint mu
// and standard deviation sigma for input x
func GaussianDefiniteIntegral(mu, sigma, x float32) float32 {
	return 0.5 * (1 + float32(math.Erf( float64((x-mu)/(sqrt2 * sigma)) )) )
}

// Generates a 1D gaussian kernel for the given sigma, based on symbolic
// integration via the error function. The resulting width is always odd.
func gaussianKernel1D(sigma float32) (kernel []float32) {
	mu       :=float32(0)

	// Find minimal kernel width for which the area under the curve left of the kernel is below the acceptable error
	acceptOut:=float32(0.01)
	radius   :=0
	for {
		val:=GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
		if val < acceptOut {
			radius--
			break
		}
		radius++
	}
	width    :=2*radius+1
	kernel    =make([]float32, width)

	// Calculate left half of the kernel via symbolic integration
	sum      :=float32(0)
	lower    :=GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
	for i:=0; i<=radius; i++ {
		upper:=GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius)+float32(i+1))
		delta:=upper - lower
		kernel[i]=delta
		sum  +=delta
		lower =upper
	}

	// Mirror right half of the kernel to avoid numeric instability
	for i:=1; i<=radius; i++ {
		value            :=kernel[radius-i]
		kernel[radius+i]  =value
		sum              +=value
	}

	// Normalize the sum of the kernel to 1, for dealing with the truncated part of the distribution
	factor:=1.0/sum
	for i:=range kernel { kernel[i]*=factor }
	return kernel
}

// Generates a 2D gaussian PSF kernel for the given sigma as the outer
// product of the integrated 1D kernel with itself. The kernel is odd-sized,
// symmetric and normalized to unit sum.
func NewGaussianKernel(sigma float32) (*Kernel, error) {
	if sigma<=0 { return nil, fmt.Errorf("gaussian PSF sigma must be positive, got %g", sigma) }
	k1:=gaussianKernel1D(sigma)
	size:=len(k1)
	flat:=make([]float32, size*size)
	for y:=0; y<size; y++ {
		for x:=0; x<size; x++ {
			flat[y*size+x]=k1[y]*k1[x]
		}
	}
	k:=&Kernel{Height: size, Width: size, CenterY: size/2, CenterX: size/2, Weights: flat}
	k.normalize()
	return k, nil
}

// Generates a 2D Moffat PSF kernel with the given half-width radius,
// core width alpha and power beta, evaluated on the pixel grid and
// normalized to unit sum. Size is 2*radius+1 per axis.
func NewMoffatKernel(radius int, alpha, beta float32) (*Kernel, error) {
	if radius<0  { return nil, fmt.Errorf("moffat PSF radius must be non-negative, got %d", radius) }
	if alpha<=0  { return nil, fmt.Errorf("moffat PSF alpha must be positive, got %g", alpha) }
	if beta<=0   { return nil, fmt.Errorf("moffat PSF beta must be positive, got %g", beta) }
	size:=2*radius+1
	flat:=make([]float32, size*size)
	alphaSq:=float64(alpha)*float64(alpha)
	for y:=0; y<size; y++ {
		for x:=0; x<size; x++ {
			dy, dx:=float64(y-radius), float64(x-radius)
			rSq:=dy*dy+dx*dx
			flat[y*size+x]=float32(math.Pow(1+rSq/alphaSq, -float64(beta)))
		}
	}
	k:=&Kernel{Height: size, Width: size, CenterY: radius, CenterX: radius, Weights: flat}
	k.normalize()
	return k, nil
}
