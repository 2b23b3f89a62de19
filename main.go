package main

import (
	"os"

	"textfinder/app"
)

func main() {
	os.Exit(app.Run())
}
