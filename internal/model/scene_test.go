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
	"bytes"
	"encoding/json"
	"testing"
	"github.com/astrobits/deblend/internal/grad"
	"github.com/astrobits/deblend/internal/psf"
	"github.com/astrobits/deblend/internal/scene"
)

func testScene() *Scene {
	shape:=[][]float32{
		{0.05, 0.1, 0.05},
		{0.1, 0.4, 0.1},
		{0.05, 0.1, 0.05},
	}
	return &Scene{
		Bands: 3, Height: 16, Width: 14,
		PSF: &PSFSpec{Type: "explicit", Weights: [][]float32{
			{0.0, 0.2, 0.0},
			{0.1, 0.4, 0.1},
			{0.0, 0.2, 0.0},
		}},
		Sources: []*scene.Source{
			{Color: []float32{5, 1, 0}, Shape: shape, CenterY: 5, CenterX: 4},
			{Color: []float32{0, 2, 4}, Shape: shape, CenterY: 9, CenterX: 10},
		},
	}
}

func TestSceneJSONRoundTrip(t *testing.T) {
	sc:=testScene()
	buf:=bytes.Buffer{}
	if err:=json.NewEncoder(&buf).Encode(sc); err!=nil { t.Fatal(err) }
	sc2, err:=NewSceneFromJSON(&buf)
	if err!=nil { t.Fatal(err) }

	c:=NewContext(nil)
	r1, _, _, err:=sc.Render(c)
	if err!=nil { t.Fatal(err) }
	r2, _, _, err:=sc2.Render(c)
	if err!=nil { t.Fatal(err) }
	for i:=range r1.Data {
		if r1.Data[i]!=r2.Data[i] {
			t.Fatalf("rendered pixel %d differs after JSON round trip", i)
		}
	}
}

func TestSceneGradientsMatchManualPipeline(t *testing.T) {
	sc:=testScene()
	c:=NewContext(nil)

	// Synthesize observed data from a brighter variant of the scene
	truth:=testScene()
	truth.Sources[0].Color=[]float32{6, 2, 1}
	observed, _, _, err:=truth.Render(c)
	if err!=nil { t.Fatal(err) }
	sc.Observed=observed.Data

	grads, loss, err:=sc.Gradients(c)
	if err!=nil { t.Fatal(err) }

	// Manual pipeline: render, seed gradient, full-image adjoint, extract
	rendered, _, boxes, err:=sc.Render(c)
	if err!=nil { t.Fatal(err) }
	kernel, err:=sc.Kernel()
	if err!=nil { t.Fatal(err) }
	g:=psf.CachedGeometry(kernel)
	seed:=grad.LossGradient(sc.ObservedImage(), rendered, nil)
	wantGrads:=grad.Extract(grad.Backprop(seed, g, c.MaxThreads), boxes)
	wantLoss:=grad.Loss(sc.ObservedImage(), rendered, nil)

	if loss!=wantLoss {
		t.Errorf("loss=%g; want %g", loss, wantLoss)
	}
	for i:=range wantGrads {
		for j:=range wantGrads[i].Data {
			if grads[i].Data[j]!=wantGrads[i].Data[j] {
				t.Fatalf("source %d gradient[%d]=%g; want %g", i, j, grads[i].Data[j], wantGrads[i].Data[j])
			}
		}
	}

	// Determinism across repeated passes
	grads2, loss2, err:=sc.Gradients(c)
	if err!=nil { t.Fatal(err) }
	if loss2!=loss { t.Errorf("repeated loss %g; want %g", loss2, loss) }
	for i:=range grads {
		for j:=range grads[i].Data {
			if grads2[i].Data[j]!=grads[i].Data[j] {
				t.Fatalf("repeated pass source %d gradient[%d] differs", i, j)
			}
		}
	}
}

// Malformed scenes fail eagerly with an error on every entry path,
// never with a panic inside rendering or a loss over a truncated buffer
func TestSceneValidation(t *testing.T) {
	c:=NewContext(nil)

	negative:=testScene()
	negative.Height=-4
	if err:=negative.Validate(); err==nil {
		t.Errorf("negative height passed validation; want error")
	}
	if _, _, _, err:=negative.Render(c); err==nil {
		t.Errorf("render with negative height passed; want error")
	}

	zero:=testScene()
	zero.Bands=0
	if _, _, _, err:=zero.Render(c); err==nil {
		t.Errorf("render with zero bands passed; want error")
	}

	noPSF:=testScene()
	noPSF.PSF=nil
	if err:=noPSF.Validate(); err==nil {
		t.Errorf("missing PSF passed validation; want error")
	}

	short:=testScene()
	short.Observed=[]float32{1, 2, 3}
	if _, err:=short.Loss(c); err==nil {
		t.Errorf("loss over short observed data passed; want error")
	}
	long:=testScene()
	long.Observed=make([]float32, long.Bands*long.Height*long.Width+1)
	if _, _, err:=long.Gradients(c); err==nil {
		t.Errorf("gradients over long observed data passed; want error")
	}
	badWeights:=testScene()
	badWeights.Observed=make([]float32, badWeights.Bands*badWeights.Height*badWeights.Width)
	badWeights.Weights=[]float32{1}
	if _, err:=badWeights.Loss(c); err==nil {
		t.Errorf("loss with short weights passed; want error")
	}

	// The same checks guard the JSON constructor
	buf:=bytes.Buffer{}
	if err:=json.NewEncoder(&buf).Encode(short); err!=nil { t.Fatal(err) }
	if _, err:=NewSceneFromJSON(&buf); err==nil {
		t.Errorf("JSON scene with short observed data passed; want error")
	}
	buf.Reset()
	if err:=json.NewEncoder(&buf).Encode(negative); err!=nil { t.Fatal(err) }
	if _, err:=NewSceneFromJSON(&buf); err==nil {
		t.Errorf("JSON scene with negative height passed; want error")
	}
}

func TestPSFSpecGenerators(t *testing.T) {
	gaussian:=&PSFSpec{Type: "gaussian", Sigma: 1.5}
	k, err:=gaussian.Kernel()
	if err!=nil { t.Fatal(err) }
	if k.Height%2==0 || k.Width%2==0 {
		t.Errorf("gaussian kernel dims %dx%d; want odd", k.Height, k.Width)
	}

	moffat:=&PSFSpec{Type: "moffat", Radius: 2, Alpha: 1.2, Beta: 3}
	if k, err=moffat.Kernel(); err!=nil { t.Fatal(err) }
	if k.Height!=5 || k.Width!=5 {
		t.Errorf("moffat kernel dims %dx%d; want 5x5", k.Height, k.Width)
	}

	unknown:=&PSFSpec{Type: "boxcar"}
	if _, err=unknown.Kernel(); err==nil {
		t.Errorf("unknown PSF type passed; want error")
	}
}
