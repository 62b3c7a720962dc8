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


package rest

import (
	"net/http"
	"github.com/gin-gonic/gin"

	"github.com/astrobits/deblend/internal/fit"
	"github.com/astrobits/deblend/internal/img"
	"github.com/astrobits/deblend/internal/model"
)

// Builds the JSON API router. Scenes are posted whole; the engine is
// stateless across requests.
func Router() *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping",      getPing)
			v1.POST("/render",    postRender)
			v1.POST("/gradients", postGradients)
			v1.POST("/fit",       postFit)
		}
	}
	return r
}

// Serves the deblending engine as a JSON API on the given address
func Serve(addr string) error {
	return Router().Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func bindScene(c *gin.Context) *model.Scene {
	var sc model.Scene
	if err:=c.ShouldBindJSON(&sc); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return nil
	}
	if err:=sc.Validate(); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return nil
	}
	return &sc
}

// Renders the posted scene and returns the observed-frame model with
// per-band statistics, plus the loss when observed data was supplied
func postRender(c *gin.Context) {
	sc:=bindScene(c)
	if sc==nil { return }

	ctx:=model.NewContext(nil)
	rendered, _, boxes, err:=sc.Render(ctx)
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	stats:=make([]gin.H, rendered.Bands)
	for b:=0; b<rendered.Bands; b++ {
		s:=img.NewBasicStats(rendered.Channel(b))
		stats[b]=gin.H{"min": s.Min, "max": s.Max, "mean": s.Mean, "stdDev": s.StdDev}
	}
	res:=gin.H{
		"bands"   : rendered.Bands,
		"height"  : rendered.Height,
		"width"   : rendered.Width,
		"rendered": rendered.Data,
		"boxes"   : boxes,
		"stats"   : stats,
	}
	if sc.Observed!=nil {
		loss, err:=sc.Loss(ctx)
		if err!=nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
			return
		}
		res["loss"]=loss
	}
	c.JSON(http.StatusOK, res)
}

type sourceGradient struct {
	Box      img.Box   `json:"box"`
	Gradient []float32 `json:"gradient"` // Flat band-major data, bands x box height x box width
}

// Computes per-source gradients of the loss for the posted scene,
// which must include observed data
func postGradients(c *gin.Context) {
	sc:=bindScene(c)
	if sc==nil { return }

	ctx:=model.NewContext(nil)
	grads, loss, err:=sc.Gradients(ctx)
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	res:=make([]sourceGradient, len(grads))
	for i,g:=range grads {
		res[i]=sourceGradient{Box: sc.Sources[i].Box(), Gradient: g.Data}
	}
	c.JSON(http.StatusOK, gin.H{"loss": loss, "sources": res})
}

// Fits the posted scene's source colors against its observed data and
// returns the updated colors with the final loss
func postFit(c *gin.Context) {
	sc:=bindScene(c)
	if sc==nil { return }

	ctx:=model.NewContext(nil)
	loss, err:=fit.FitColors(sc, ctx)
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	colors:=make([][]float32, len(sc.Sources))
	for i,s:=range sc.Sources { colors[i]=s.Color }
	c.JSON(http.StatusOK, gin.H{"loss": loss, "colors": colors})
}
