package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/vcfgen/internal/contacts"
	"github.com/mrlokans/vcfgen/internal/database"
	auditrepo "github.com/mrlokans/vcfgen/internal/database/audit"
	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

type panickingParser struct{}

func (panickingParser) ParseLine(string) (contacts.Contact, error) {
	panic("boom")
}

func newTestGenerateCommand(t *testing.T, input string, args ...string) (*GenerateCommand, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := &GenerateCommand{
		Stdin:  strings.NewReader(input),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, &stdout, &stderr
}

func TestGenerateCommand_ParseFlags(t *testing.T) {
	cmd := NewGenerateCommand()
	err := cmd.ParseFlags([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-in")

	cmd = NewGenerateCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-in", "list.txt"}))
	assert.Equal(t, "phones.vcf", cmd.OutputPath)
	assert.Equal(t, 200, cmd.MaxInvalid)
	assert.False(t, cmd.CleanQuotes)
}

func TestGenerateCommand_Success(t *testing.T) {
	out := filepath.Join(t.TempDir(), "friends.vcf")
	cmd, stdout, stderr := newTestGenerateCommand(t, "Alice 13800138000\nBob 13900139000\n",
		"-in", "-", "-out", out, "-no-audit")

	require.NoError(t, cmd.Run())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "BEGIN:VCARD"))
	assert.Contains(t, stdout.String(), "VCF file generated")
	assert.Contains(t, stdout.String(), out)
	assert.Contains(t, stderr.String(), "100%")
}

func TestGenerateCommand_PartialExitCode(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(in, []byte("Alice 13800138000\nnot a contact\n"), 0o644))
	out := filepath.Join(dir, "phones.vcf")

	cmd, stdout, stderr := newTestGenerateCommand(t, "", "-in", in, "-out", out, "-quiet", "-no-audit")

	err := cmd.Run()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitPartial, exitErr.Code)
	assert.Contains(t, stdout.String(), "VCF file partially generated")
	assert.Contains(t, stdout.String(), "Line 2: not a contact")
	assert.Empty(t, stderr.String())
}

func TestGenerateCommand_FailureExitCode(t *testing.T) {
	out := filepath.Join(t.TempDir(), "phones.vcf")
	cmd, stdout, _ := newTestGenerateCommand(t, "Alice 13800138000\n", "-in", "-", "-out", out, "-quiet", "-no-audit")
	cmd.NewProcessor = func() *vcard.Processor {
		return vcard.NewProcessor(panickingParser{}, vcard.NewCardEncoder())
	}

	err := cmd.Run()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitFailure, exitErr.Code)
	assert.Contains(t, stdout.String(), "VCF file generation failed")
	assert.Contains(t, stdout.String(), "boom")
}

func TestGenerateCommand_CleanQuotes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "phones.vcf")
	cmd, _, _ := newTestGenerateCommand(t, "\"Alice\"\t\"13800138000\"\n",
		"-in", "-", "-out", out, "-clean-quotes", "-quiet", "-no-audit")

	require.NoError(t, cmd.Run())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FN:Alice")
}

func TestGenerateCommand_MissingInput(t *testing.T) {
	cmd, _, _ := newTestGenerateCommand(t, "", "-in", filepath.Join(t.TempDir(), "missing.txt"), "-no-audit")

	err := cmd.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")
}

func TestGenerateCommand_RecordsAuditEvent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "vcfgen.db")
	out := filepath.Join(dir, "phones.vcf")

	cmd, _, _ := newTestGenerateCommand(t, "Alice 13800138000\n", "-in", "-", "-out", out, "-quiet", "-db", dbPath)
	require.NoError(t, cmd.Run())

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	events, total, err := auditrepo.NewRepository(db.DB).GetEvents(entities.AuditEventGenerate, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, "cli_generate", events[0].Action)
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)

	p.print(0.5, true)
	p.print(0.501, true)
	p.print(1, true)
	assert.Equal(t, "\rGenerating...  50%\rGenerating... 100%", buf.String())

	buf.Reset()
	p.print(0, false)
	p.print(0, false)
	assert.Equal(t, "\rGenerating...", buf.String())
}

func TestCleanQuotesCommand(t *testing.T) {
	var stdout bytes.Buffer
	cmd := &CleanQuotesCommand{
		Stdin:  strings.NewReader("\"Alice\" \"13800138000\"\n"),
		Stdout: &stdout,
	}
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, "-", cmd.InputPath)

	require.NoError(t, cmd.Run())
	assert.Equal(t, "Alice 13800138000\n", stdout.String())
}

func TestCleanQuotesCommand_File(t *testing.T) {
	in := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(in, []byte(`"Bob" 13900139000`), 0o644))

	var stdout bytes.Buffer
	cmd := &CleanQuotesCommand{Stdout: &stdout}
	require.NoError(t, cmd.ParseFlags([]string{"-in", in}))
	require.NoError(t, cmd.Run())
	assert.Equal(t, "Bob 13900139000", stdout.String())
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 2, Err: errors.New("2 invalid lines")}
	assert.Equal(t, "2 invalid lines", err.Error())
	assert.Equal(t, "exit status 1", (&ExitError{Code: 1}).Error())
}
