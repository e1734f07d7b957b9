package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/vcfgen/internal/textfilter"
)

// CleanQuotesCommand strips wrapping double quotes from pasted text.
type CleanQuotesCommand struct {
	InputPath string

	Stdin  io.Reader
	Stdout io.Writer
}

func NewCleanQuotesCommand() *CleanQuotesCommand {
	return &CleanQuotesCommand{Stdin: os.Stdin, Stdout: os.Stdout}
}

func (cmd *CleanQuotesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("clean-quotes", flag.ContinueOnError)

	fs.StringVar(&cmd.InputPath, "in", "-", "Input text file, or '-' for stdin")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s clean-quotes [-in <file|->]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Remove double quotes wrapped around names and numbers, e.g. cells\n")
		fmt.Fprintf(os.Stderr, "copied from a spreadsheet, and print the result to stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *CleanQuotesCommand) Run() error {
	text, err := readInput(cmd.InputPath, cmd.Stdin)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.Stdout, textfilter.CleanQuotes(text))
	return err
}
