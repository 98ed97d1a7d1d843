package exitcalls

import (
	"log"
	"os"
)

func Load() {
	panic("boom") // want "panic is forbidden"
}

func Fail() {
	log.Fatal("fatal")     // want "log.Fatal is forbidden outside main function"
	log.Fatalf("%s", "x")  // want "log.Fatalf is forbidden outside main function"
	os.Exit(1)             // want "os.Exit is forbidden outside main function"
	log.Println("logging") // allowed
}

// main outside package main is an ordinary function.
func main() {
	os.Exit(0) // want "os.Exit is forbidden outside main function"
}
