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


package img

import (
	"fmt"
	"math"
	"github.com/valyala/fastrand"
)

// Basic statistics on data arrays, for residual and model diagnostics
type BasicStats struct {
	Min    float32  // Minimum
	Max    float32  // Maximum
	Mean   float32  // Mean (average)
	StdDev float32  // Standard deviation around the mean
}

// Calculates basic statistics for the given data
func NewBasicStats(data []float32) *BasicStats {
	mn, mx:=float32(math.MaxFloat32), float32(-math.MaxFloat32)
	sum:=float32(0)
	for _,d:=range data {
		if d<mn { mn=d }
		if d>mx { mx=d }
		sum+=d
	}
	mean:=sum/float32(len(data))
	sumSqDiff:=float32(0)
	for _,d:=range data {
		diff:=d-mean
		sumSqDiff+=diff*diff
	}
	stdDev:=float32(math.Sqrt(float64(sumSqDiff/float32(len(data)))))
	return &BasicStats{Min: mn, Max: mx, Mean: mean, StdDev: stdDev}
}

func (s *BasicStats) String() string {
	return fmt.Sprintf("min %.4g max %.4g mean %.4g stddev %.4g", s.Min, s.Max, s.Mean, s.StdDev)
}

// Calculates a fast approximate median of the (presumably large) data by
// subsampling the given number of values and taking the median of that.
// Returns NaN for empty data or a non-positive sample count.
func FastApproxMedian(data []float32, numSamples int) float32 {
	if len(data)==0 || numSamples<=0 {
		return float32(math.NaN())
	}
	if numSamples>len(data) { numSamples=len(data) }
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	samples:=make([]float32, numSamples)
	for i:=range samples {
		samples[i]=data[rng.Uint32n(max)]
	}
	return QSelectMedianFloat32(samples)
}

// Select the median of the given data, reordering it in the process
func QSelectMedianFloat32(data []float32) float32 {
	k:=len(data)/2
	lo, hi:=0, len(data)-1
	for lo<hi {
		pivot:=data[(lo+hi)/2]
		l, h:=lo, hi
		for l<=h {
			for data[l]<pivot { l++ }
			for data[h]>pivot { h-- }
			if l<=h {
				data[l], data[h]=data[h], data[l]
				l++
				h--
			}
		}
		if k<=h {
			hi=h
		} else if k>=l {
			lo=l
		} else {
			break
		}
	}
	return data[k]
}
