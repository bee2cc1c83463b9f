// Package errors provides examples of structured error handling in datstats.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/datstats/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeData, "row has fewer fields than the column count").
		WithDetail("line", 7).
		WithDetail("want", 3).
		WithDetail("got", 2)

	fmt.Println(err.Error())

	// Output:
	// data: row has fewer fields than the column count (got=2, line=7, want=3)
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read stats file").
		WithDetail("path", "crawl.dat")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Original error was unexpected EOF")
	}

	// Output:
	// This is a file error
	// Original error was unexpected EOF
}
