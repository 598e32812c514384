package graph

import (
	"github.com/bundlekit/finalizer/internal/ast"
)

type Chunk struct {
	// The output path relative to the output directory, for example "entry.js"
	FileName string

	// Modules in this chunk in the order they are printed
	Modules []uint32

	EntryPoint uint32
}

type ChunkGraph struct {
	Chunks []Chunk

	// Maps a source index to the chunk that contains it. This is invalid for
	// modules that aren't in any chunk.
	ModuleToChunk []ast.Index32
}

func (g *ChunkGraph) ChunkForModule(sourceIndex uint32) (*Chunk, bool) {
	if int(sourceIndex) >= len(g.ModuleToChunk) {
		return nil, false
	}
	index := g.ModuleToChunk[sourceIndex]
	if !index.IsValid() {
		return nil, false
	}
	return &g.Chunks[index.GetIndex()], true
}
