// Command rulefx inspects Ruby sources and autocorrects the offenses it can.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:]))
}
