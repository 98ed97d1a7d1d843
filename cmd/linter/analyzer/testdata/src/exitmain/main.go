package main

import (
	"log"
	"os"
)

func run() error {
	return nil
}

func helper() {
	os.Exit(2) // want "os.Exit is forbidden outside main function"
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
	defer func() {
		os.Exit(0)
	}()
	helper()
}
