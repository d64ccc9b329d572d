package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/C-Sto/goesedb/cmd"
	"github.com/mitchellh/cli"
)

const version = "0.1.0"

func main() {
	ui := &cli.BasicUi{Reader: os.Stdin, Writer: os.Stdout, ErrorWriter: os.Stderr}

	commands := map[string]cli.CommandFactory{
		"export": func() (cli.Command, error) {
			return &cmd.ExportCommand{Ui: ui, ShutdownCh: makeShutdownCh()}, nil
		},
		"info": func() (cli.Command, error) {
			return &cmd.InfoCommand{Ui: ui}, nil
		},
		"check": func() (cli.Command, error) {
			return &cmd.CheckCommand{Ui: ui}, nil
		},
	}

	c := cli.NewCLI("goesedb", version)
	c.Args = os.Args[1:]
	c.Commands = commands
	c.HelpFunc = cli.BasicHelpFunc("goesedb")

	exitCode, err := c.Run()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func makeShutdownCh() <-chan struct{} {
	shutdownCh := make(chan struct{})
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt)

	go func() {
		defer close(shutdownCh)
		<-signalCh
	}()
	return shutdownCh
}
