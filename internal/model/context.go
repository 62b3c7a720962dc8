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
	"io"
	"runtime"
	"github.com/pbnjay/memory"
)

// An execution context for forward and backward passes
type Context struct {
	Log        io.Writer
	MemoryMB   int    // memory.TotalMemory()/1024/1024
	MaxThreads int    // Concurrency limit for band and per-source fan-out
}

func NewContext(log io.Writer) *Context {
	if log==nil { log=io.Discard }
	memoryMB:=int(memory.TotalMemory()/1024/1024)
	return &Context{
		Log       : log,
		MemoryMB  : memoryMB,
		MaxThreads: runtime.GOMAXPROCS(0),
	}
}
