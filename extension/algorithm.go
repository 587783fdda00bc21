package extension

import (
	"github.com/ocfl-archive/ocflgo/digest"
)

// Algorithm is a digest.Algorithm provided by an extension.
type Algorithm interface {
	digest.Algorithm
	// Extension returns the AlgorithmRegistry extension that provides the
	// algorithm.
	Extension() AlgorithmRegistry
}

// AlgorithmRegistry is an extension that provides a registry of digest
// algorithms.
type AlgorithmRegistry interface {
	Extension
	Algorithms() digest.Register
}

// algRegistry is an implementation of AlgorithmRegistry.
type algRegistry struct {
	Base
	algs digest.Register
}

// Algorithms implements AlgorithmRegistry for algRegistry.
func (d algRegistry) Algorithms() digest.Register { return d.algs }

// alg is an implementation of Algorithm used by extension digest algorithms.
// It wraps a built-in digest.Algorithm to attribute it to the extension that
// provides it.
type alg struct {
	digest.Algorithm
	ext AlgorithmRegistry
}

func (a alg) Extension() AlgorithmRegistry { return a.ext }
