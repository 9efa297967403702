package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/cmd/bm25/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
