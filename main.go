package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"texlipse/internal/server"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

func main() {
	versionFlag := flag.Bool("version", false, "Print the version of the program")
	logfileFlag := flag.String("logfile", "", "Path to log file")
	verbosityFlag := flag.Int("verbosity", 1, "Log verbosity, 0 to 5")
	flag.Parse()

	// Version tag
	if *versionFlag {
		fmt.Printf("texlipse LSP server version %s\n", Version)
		return
	}

	// Logging. stdout carries the protocol, so nothing may be printed there.
	if *logfileFlag != "" {
		commonlog.Configure(*verbosityFlag, logfileFlag)
		logFile, err := os.OpenFile(*logfileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
		log.SetFlags(log.Ldate | log.Ltime | log.Llongfile)
	} else {
		commonlog.Configure(*verbosityFlag, nil)
		log.SetOutput(io.Discard)
	}

	if err := server.NewServer(Version, false).RunStdio(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
