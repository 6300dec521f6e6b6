// Command svgrbl converts SVG drawings into Grbl programs and streams them to
// a controller.
package main

import (
	"fmt"
	"log"
	"os"
)

const usage = `Usage: svgrbl <command> [flags]

Commands:
  convert  Convert an SVG file into a .gcode job.
  stream   Stream a .gcode job to the controller.
  serve    Run the HTTP control server.

Run 'svgrbl <command> -h' for command flags.
`

func main() {
	log.SetFlags(log.Lshortfile)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(os.Args[2:])
	case "stream":
		err = runStream(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command '%s'\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
