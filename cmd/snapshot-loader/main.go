package main

import "github.com/researchgate/crossref-snapshot-mount/internal/cli"

func main() {
	cli.Execute()
}
