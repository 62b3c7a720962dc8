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


package fit

import (
	"fmt"
	"math"
	"gonum.org/v1/gonum/optimize"
	"github.com/astrobits/deblend/internal/model"
)

// Fits all per-source color amplitudes of a scene against its observed
// data by minimizing the weighted squared-error loss, holding shapes and
// placements fixed. This is the parameter-update side of the gradient
// contract: the engine hands back per-source local model gradients, and the
// chain rule through the color x shape outer product turns them into color
// gradients. The loss is quadratic in the colors, so the minimization is
// convex and converges quickly.
//
// Updates the scene's source colors in place and returns the final loss.
func FitColors(sc *model.Scene, c *model.Context) (float32, error) {
	if sc.Observed==nil { return 0, fmt.Errorf("scene has no observed data to fit against") }
	if len(sc.Sources)==0 { return 0, fmt.Errorf("scene has no sources to fit") }

	// Validate once up front; the closures below cannot fail afterwards,
	// since shapes and placements stay fixed during the fit
	if _, _, err:=sc.Gradients(c); err!=nil { return 0, err }

	x0:=make([]float64, 0, len(sc.Sources)*sc.Bands)
	for _,s:=range sc.Sources {
		for _,col:=range s.Color { x0=append(x0, float64(col)) }
	}

	setColors:=func(x []float64) {
		i:=0
		for _,s:=range sc.Sources {
			for b:=range s.Color {
				s.Color[b]=float32(x[i])
				i++
			}
		}
	}

	problem:=optimize.Problem{
		Func: func(x []float64) float64 {
			setColors(x)
			loss, err:=sc.Loss(c)
			if err!=nil { return math.Inf(1) }
			return float64(loss)
		},
		Grad: func(dst, x []float64) {
			setColors(x)
			grads, _, err:=sc.Gradients(c)
			if err!=nil { return }
			i:=0
			for j,s:=range sc.Sources {
				g:=grads[j]
				for b:=range s.Color {
					// d loss / d color[b] = sum over box pixels of
					// gradient[b,y,x] * shape[y,x]
					sum:=float64(0)
					plane:=g.Channel(b)
					for y:=0; y<g.Height; y++ {
						row:=s.Shape[y]
						for x2:=0; x2<g.Width; x2++ {
							sum+=float64(plane[y*g.Width+x2])*float64(row[x2])
						}
					}
					dst[i]=sum
					i++
				}
			}
		},
	}

	// The loss and gradients are evaluated in float32, so the gradient norm
	// bottoms out well above gonum's float64 default threshold. Stop at the
	// float32 noise floor instead, and accept a stalled line search there.
	settings:=&optimize.Settings{GradientThreshold: 1e-3}
	result, err:=optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if err!=nil && err!=optimize.ErrLinesearcherFailure { return 0, err }
	setColors(result.X)
	fmt.Fprintf(c.Log, "Fitted %d source colors to loss %.6g after %d evaluations\n",
	            len(sc.Sources), result.F, result.FuncEvaluations)
	return float32(result.F), nil
}
