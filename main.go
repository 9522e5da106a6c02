package main

import (
	"log"

	"github.com/cloudbees-io/docker-build/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
