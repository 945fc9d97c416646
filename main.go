package main

import (
	"flag"
	"log"

	"webide/server"
)

func main() {
	var port uint
	var dbPath string

	flag.UintVar(&port, "port", 1234, "The port to listen on")
	flag.StringVar(&dbPath, "db", "webide.db", "Path of the workspace database")
	flag.Parse()

	if err := server.Start(port, dbPath); err != nil {
		log.Fatal(err)
	}
}
