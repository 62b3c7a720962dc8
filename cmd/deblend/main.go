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
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"runtime/pprof"
	"github.com/pbnjay/memory"

	"github.com/astrobits/deblend/internal/fit"
	"github.com/astrobits/deblend/internal/img"
	"github.com/astrobits/deblend/internal/model"
	"github.com/astrobits/deblend/internal/rest"
)

const version = "0.1.0"

var totalMiBs=memory.TotalMemory()/1024/1024

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out       = flag.String("out", "", "save a preview of the rendered model to `file` (.jpg or .tif)")
var doFit     = flag.Bool("fit", false, "fit source colors against the scene's observed data before rendering")
var doGrads   = flag.Bool("gradients", false, "compute and report per-source gradients (needs observed data)")
var serve     = flag.Bool("serve", false, "run as a JSON API server instead of processing a scene")
var addr      = flag.String("addr", ":8080", "listen address for -serve")

func main() {
	flag.Usage=func() {
		fmt.Printf(`deblend %s
Render astronomical scene models and their gradients with direct PSF convolution.

Usage: deblend [-flags] scene.json

Flags:
`, version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *cpuprofile!="" {
		f, err:=os.Create(*cpuprofile)
		if err!=nil { fmt.Printf("error creating cpu profile: %s\n", err.Error()); os.Exit(1) }
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *serve {
		fmt.Printf("deblend %s serving on %s with %d MiB physical memory and %d threads\n",
		           version, *addr, totalMiBs, runtime.GOMAXPROCS(0))
		if err:=rest.Serve(*addr); err!=nil {
			fmt.Printf("error serving: %s\n", err.Error())
			os.Exit(1)
		}
		return
	}

	args:=flag.Args()
	if len(args)!=1 {
		flag.Usage()
		os.Exit(2)
	}

	file, err:=os.Open(args[0])
	if err!=nil { fmt.Printf("error opening scene: %s\n", err.Error()); os.Exit(1) }
	sc, err:=model.NewSceneFromJSON(file)
	file.Close()
	if err!=nil { fmt.Printf("error reading scene: %s\n", err.Error()); os.Exit(1) }

	c:=model.NewContext(os.Stdout)
	fmt.Fprintf(c.Log, "deblend %s with %d MiB physical memory and %d threads\n", version, totalMiBs, c.MaxThreads)

	if *doFit {
		loss, err:=fit.FitColors(sc, c)
		if err!=nil { fmt.Printf("error fitting: %s\n", err.Error()); os.Exit(1) }
		for i,s:=range sc.Sources {
			fmt.Fprintf(c.Log, "source %d at (%d,%d) color %v\n", i, s.CenterY, s.CenterX, s.Color)
		}
		fmt.Fprintf(c.Log, "final loss %.6g\n", loss)
	}

	rendered, _, boxes, err:=sc.Render(c)
	if err!=nil { fmt.Printf("error rendering: %s\n", err.Error()); os.Exit(1) }
	for b:=0; b<rendered.Bands; b++ {
		fmt.Fprintf(c.Log, "band %d: %v\n", b, img.NewBasicStats(rendered.Channel(b)))
	}

	if *doGrads {
		grads, loss, err:=sc.Gradients(c)
		if err!=nil { fmt.Printf("error computing gradients: %s\n", err.Error()); os.Exit(1) }
		fmt.Fprintf(c.Log, "loss %.6g\n", loss)
		for i,g:=range grads {
			fmt.Fprintf(c.Log, "source %d box %v gradient norm %.6g\n", i, boxes[i], norm(g.Data))
		}
	}

	if *out!="" {
		fmt.Fprintf(c.Log, "Writing %s preview to %s\n", rendered.DimensionsToString(), *out)
		if err:=writePreview(rendered, *out); err!=nil {
			fmt.Printf("error writing preview: %s\n", err.Error())
			os.Exit(1)
		}
	}

	if *memprofile!="" {
		f, err:=os.Create(*memprofile)
		if err!=nil { fmt.Printf("error creating memory profile: %s\n", err.Error()); os.Exit(1) }
		runtime.GC()
		if err:=pprof.WriteHeapProfile(f); err!=nil {
			fmt.Printf("error writing memory profile: %s\n", err.Error())
		}
		f.Close()
	}
}

func norm(data []float32) float32 {
	sum:=float64(0)
	for _,d:=range data { sum+=float64(d)*float64(d) }
	return float32(math.Sqrt(sum))
}
