package main

import "github.com/mvp-joe/concept-lens/internal/cli"

func main() {
	cli.Execute()
}
