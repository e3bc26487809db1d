// chainverify checks the hash-chain of a voting ledger offline, reading it
// from a running server, an exported JSON file or a LevelDB mirror. It also
// checks the signed receipt handed to a voter when a vote is cast.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli"
)

type metadata struct {
	verbose bool
	timeout time.Duration
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp(w io.Writer, e io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "chainverify"
	app.Usage = "verify the hash-chain of a voting ledger"
	app.Version = version
	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " print every block",
		},
		cli.DurationFlag{
			Name:  "timeout, t",
			Value: 30 * time.Second,
			Usage: " request timeout `DURATION`",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "url",
			Usage:     "fetch the chain from a running server",
			ArgsUsage: "BASE-URL",
			Action:    runURL,
		},
		{
			Name:      "file",
			Usage:     "read the chain from an exported JSON file",
			ArgsUsage: "PATH",
			Action:    runFile,
		},
		{
			Name:      "receipt",
			Usage:     "verify the receipt of a cast vote response",
			ArgsUsage: "PATH",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "kid, k",
					Value: "",
					Usage: " require receipts signed by ledger key `ADDRESS`",
				},
			},
			Action: runReceipt,
		},
		{
			Name:      "leveldb",
			Usage:     "read the chain from a LevelDB mirror directory (server must be stopped)",
			ArgsUsage: "DIR",
			Action:    runLevelDB,
		},
	}

	app.Before = func(c *cli.Context) error {
		c.App.Metadata = map[string]interface{}{
			"config": &metadata{
				verbose: c.Bool("verbose"),
				timeout: c.Duration("timeout"),
				w:       c.App.Writer,
			},
		}
		return nil
	}

	return app
}
