package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/google/uuid"

	"github.com/mrlokans/vcfgen/internal/audit"
	"github.com/mrlokans/vcfgen/internal/config"
	"github.com/mrlokans/vcfgen/internal/database"
	auditrepo "github.com/mrlokans/vcfgen/internal/database/audit"
	"github.com/mrlokans/vcfgen/internal/generation"
	"github.com/mrlokans/vcfgen/internal/report"
	"github.com/mrlokans/vcfgen/internal/textfilter"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

// Exit codes for generate.
const (
	ExitFailure = 1
	ExitPartial = 2
)

// GenerateCommand converts a phone list into a .vcf file.
type GenerateCommand struct {
	InputPath    string
	OutputPath   string
	CleanQuotes  bool
	MaxInvalid   int
	Quiet        bool
	DatabasePath string
	NoAudit      bool

	// NewProcessor defaults to generation.DefaultProcessorFactory.
	NewProcessor generation.ProcessorFactory

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewGenerateCommand() *GenerateCommand {
	return &GenerateCommand{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (cmd *GenerateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)

	fs.StringVar(&cmd.InputPath, "in", "", "Input text file with one contact per line, or '-' for stdin (required)")
	fs.StringVar(&cmd.OutputPath, "out", config.DefaultFileName, "Path of the .vcf file to write")
	fs.BoolVar(&cmd.CleanQuotes, "clean-quotes", false, "Remove wrapping double quotes before parsing")
	fs.IntVar(&cmd.MaxInvalid, "max-invalid", report.DefaultMaxInvalid, "Maximum number of invalid lines listed in the report")
	fs.BoolVar(&cmd.Quiet, "quiet", false, "Do not print progress")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Database used to record an audit event for the run")
	fs.BoolVar(&cmd.NoAudit, "no-audit", false, "Do not record an audit event")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s generate -in <file|-> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate a vCard file from a list of names and phone numbers.\n\n")
		fmt.Fprintf(os.Stderr, "Exit status is 1 if generation failed and 2 if some lines were invalid.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s generate -in contacts.txt -out friends.vcf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  pbpaste | %s generate -in - -clean-quotes\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.InputPath == "" {
		return fmt.Errorf("required flag -in not provided")
	}
	if cmd.OutputPath == "" {
		return fmt.Errorf("-out must not be empty")
	}

	return nil
}

// Run generates the file and prints the report. A failed or partial run
// returns an *ExitError with ExitFailure or ExitPartial.
func (cmd *GenerateCommand) Run() error {
	text, err := readInput(cmd.InputPath, cmd.Stdin)
	if err != nil {
		return err
	}
	if cmd.CleanQuotes {
		text = textfilter.CleanQuotes(text)
	}

	out, err := os.Create(cmd.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	controller := generation.NewController(cmd.NewProcessor)
	if !cmd.Quiet {
		controller.SetProgressHandler(newProgressPrinter(cmd.Stderr).print)
	}

	job, err := controller.Start(text, out)
	if err != nil {
		out.Close()
		return fmt.Errorf("failed to start generation: %w", err)
	}

	stopSignals := cmd.refuseInterrupts(controller)
	result := job.Result()
	stopSignals()

	if err := out.Close(); err != nil {
		result.Exceptions = append(result.Exceptions, fmt.Errorf("close output file: %w", err))
	}
	if !cmd.Quiet {
		fmt.Fprintln(cmd.Stderr)
	}

	summary := report.Render(result, cmd.OutputPath, cmd.MaxInvalid)
	fmt.Fprintf(cmd.Stdout, "%s\n\n%s\n", summary.Title, summary.Message)

	cmd.recordAudit(result)

	switch result.Outcome() {
	case vcard.OutcomeFailure:
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("generation failed")}
	case vcard.OutcomePartial:
		return &ExitError{Code: ExitPartial, Err: fmt.Errorf("%d invalid lines", len(result.InvalidItems))}
	}
	return nil
}

// refuseInterrupts swallows SIGINT while the controller is running.
func (cmd *GenerateCommand) refuseInterrupts(controller *generation.Controller) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-sigs:
				if !controller.CanExit() {
					fmt.Fprintln(cmd.Stderr, "\nGeneration in progress, please wait for it to finish.")
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
		wg.Wait()
	}
}

func (cmd *GenerateCommand) recordAudit(result vcard.GenerateResult) {
	if cmd.NoAudit || cmd.DatabasePath == "" {
		return
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		fmt.Fprintf(cmd.Stderr, "Warning: audit event not recorded: %v\n", err)
		return
	}
	defer db.Close()

	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	auditor.LogGeneration("cli_generate", uuid.NewString(), result)
	auditor.Wait()
}

// progressPrinter rewrites a single status line on stderr.
type progressPrinter struct {
	w           io.Writer
	lastPercent int
	spinning    bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, lastPercent: -1}
}

func (p *progressPrinter) print(progress float64, determinate bool) {
	if !determinate {
		if !p.spinning {
			fmt.Fprint(p.w, "\rGenerating...")
			p.spinning = true
		}
		return
	}

	percent := int(progress * 100)
	if percent == p.lastPercent {
		return
	}
	p.lastPercent = percent
	p.spinning = false
	fmt.Fprintf(p.w, "\rGenerating... %3d%%", percent)
}
