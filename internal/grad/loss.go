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
	"github.com/astrobits/deblend/internal/img"
)

// Weighted squared-error loss between observed data and the rendered model:
// 0.5 * sum over all pixels of weights*(data-model)^2. A nil weights image
// applies uniform weight one. NaNs propagate into the result unchanged;
// trapping them is the caller's concern.
func Loss(data, model, weights *img.Image) float32 {
	sum:=float32(0)
	if weights==nil {
		for i,d:=range data.Data {
			diff:=d-model.Data[i]
			sum+=diff*diff
		}
	} else {
		for i,d:=range data.Data {
			diff:=d-model.Data[i]
			sum+=weights.Data[i]*diff*diff
		}
	}
	return 0.5*sum
}

// Per-pixel loss contributions before reduction, for diagnostics.
// Returns 0.5*weights*(data-model)^2 as a same-shape image.
func LossPixels(data, model, weights *img.Image) *img.Image {
	res:=img.NewImage(data.Bands, data.Height, data.Width)
	for i,d:=range data.Data {
		diff:=d-model.Data[i]
		w:=float32(1)
		if weights!=nil { w=weights.Data[i] }
		res.Data[i]=0.5*w*diff*diff
	}
	return res
}

// The derivative of the loss with respect to the rendered model at every
// pixel: weights*(model-data). This is the seed gradient for
// backpropagation through the convolution.
func LossGradient(data, model, weights *img.Image) *img.Image {
	res:=img.NewImage(data.Bands, data.Height, data.Width)
	if weights==nil {
		for i,d:=range data.Data {
			res.Data[i]=model.Data[i]-d
		}
	} else {
		for i,d:=range data.Data {
			res.Data[i]=weights.Data[i]*(model.Data[i]-d)
		}
	}
	return res
}
