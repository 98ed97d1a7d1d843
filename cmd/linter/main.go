// Command linter runs the project's static checks.
//
//	go run ./cmd/linter ./...
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/MikhailRaia/codekeeper/cmd/linter/analyzer"
)

func main() {
	multichecker.Main(analyzer.Analyzers()...)
}
