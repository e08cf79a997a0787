package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"knittex.app/boardroom/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
