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
	"math"
	"testing"
	"github.com/astrobits/deblend/internal/model"
	"github.com/astrobits/deblend/internal/scene"
)

func buildScene(colors [][]float32) *model.Scene {
	shape:=[][]float32{
		{0.1, 0.2, 0.1},
		{0.2, 0.8, 0.2},
		{0.1, 0.2, 0.1},
	}
	return &model.Scene{
		Bands: 3, Height: 16, Width: 16,
		PSF: &model.PSFSpec{Type: "gaussian", Sigma: 1.0},
		Sources: []*scene.Source{
			{Color: append([]float32(nil), colors[0]...), Shape: shape, CenterY: 5, CenterX: 5},
			{Color: append([]float32(nil), colors[1]...), Shape: shape, CenterY: 10, CenterX: 11},
		},
	}
}

// Recovering source colors from synthetic observations is a convex
// quadratic problem; the fit must drive the loss to the noise floor and
// land close to the true amplitudes.
func TestFitColorsRecoversAmplitudes(t *testing.T) {
	trueColors:=[][]float32{{5, 1, 0.5}, {0.5, 2, 4}}
	truth:=buildScene(trueColors)
	c:=model.NewContext(nil)
	observed, _, _, err:=truth.Render(c)
	if err!=nil { t.Fatal(err) }

	sc:=buildScene([][]float32{{1, 1, 1}, {1, 1, 1}})
	sc.Observed=observed.Data

	loss, err:=FitColors(sc, c)
	if err!=nil { t.Fatal(err) }
	if loss>1e-3 {
		t.Errorf("fitted loss=%g; want <=1e-3", loss)
	}
	for i,s:=range sc.Sources {
		for b,col:=range s.Color {
			want:=trueColors[i][b]
			if math.Abs(float64(col-want))>0.05 {
				t.Errorf("source %d color[%d]=%f; want %f", i, b, col, want)
			}
		}
	}
}

func TestFitColorsRequiresObservedData(t *testing.T) {
	sc:=buildScene([][]float32{{1, 1, 1}, {1, 1, 1}})
	c:=model.NewContext(nil)
	if _, err:=FitColors(sc, c); err==nil {
		t.Errorf("fit without observed data passed; want error")
	}
}
