package service

import "math/rand/v2"

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const DefaultCodeLength = 6

// CodeGenerator produces candidate short codes. Candidates are not
// guaranteed to be unique.
type CodeGenerator interface {
	Generate() string
}

// Generator draws codes uniformly from the base62 alphabet. It keeps no
// mutable state, so one instance can be shared by all request goroutines.
type Generator struct {
	length int
}

func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &Generator{length: length}
}

func (g *Generator) Length() int { return g.length }

func (g *Generator) Generate() string {
	code := make([]byte, g.length)
	for i := range code {
		code[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(code)
}
