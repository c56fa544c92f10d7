package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/skewerchess/skewer/internal/models"
)

func main() {
	fen := flag.String("fen", models.StartingFEN, "the position to show")
	flag.Parse()

	nfen, err := models.NewNormalizedFEN(*fen)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	for _, line := range nfen.AsciiArtLines() {
		fmt.Println(line)
	}
	fmt.Printf("%s to move\n", nfen.Turn().Name())
}
