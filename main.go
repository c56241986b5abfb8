package main

import (
	"context"
	"fmt"
	"log"
	"os"
)

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

const usage = `usage: books [command]

commands:
  serve     start the api server (default)
  resetdb   drop and recreate all database tables then exit
`

//	@title		Books API
//	@version	1.0
//	@BasePath	/
func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		infra, err := SetupInfra()
		if err != nil {
			log.Fatal("application failed to initialized: ", err)
		}
		err = NewApp(infra).Run()
		infra.Close()
		if err != nil {
			log.Fatal("application exited. check logs for more details. ", err)
		}
	case "resetdb":
		infra, err := SetupInfra()
		if err != nil {
			log.Fatal("database reset failed to initialized: ", err)
		}
		code := RunResetDB(context.Background(), infra)
		infra.Close()
		os.Exit(code)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(ExitFailure)
	}
}
