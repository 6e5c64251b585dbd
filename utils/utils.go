package utils

import (
	"io"
	"log"
)

func Map[A any, B any](input []A, mapper func(A) B) []B {
	output := make([]B, len(input))
	for i, item := range input {
		output[i] = mapper(item)
	}
	return output
}

// Closer wraps Close for use with defer, logging instead of dropping the
// error.
func Closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Printf("error closing resource: %v", err)
		}
	}
}
