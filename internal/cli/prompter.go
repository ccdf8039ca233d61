package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/Veraticus/schoolctl/internal/common"
)

// ErrInputClosed is returned when the input ends before an answer.
var ErrInputClosed = errors.New("input terminated")

// Prompter asks questions on a line-oriented terminal. It satisfies
// collection.Confirmer.
type Prompter struct {
	input  io.Reader
	reader *NonBlockingReader
	writer io.Writer
}

// NewPrompter creates a prompter; nil arguments default to stdin and stdout.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &Prompter{input: r, reader: NewNonBlockingReader(r), writer: w}
}

// Confirm asks a yes/no question. An empty answer means no.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := p.Choose(ctx, prompt+" [y/N]", []string{"y", "yes", "n", "no", ""})
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "yes", nil
}

// Ask reads one free-text answer.
func (p *Prompter) Ask(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(prompt+":")); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	line, err := p.reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", ErrInputClosed
	}
	return line, err
}

// AskSecret reads an answer without echoing it when the input is a
// terminal, and behaves like Ask otherwise.
func (p *Prompter) AskSecret(ctx context.Context, prompt string) (string, error) {
	f, ok := p.input.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.Ask(ctx, prompt)
	}
	if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(prompt+":")); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.writer)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}
	return string(secret), nil
}

// Choose repeats prompt until the answer is one of choices, compared
// case-insensitively.
func (p *Prompter) Choose(ctx context.Context, prompt string, choices []string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("write prompt: %w", err)
		}
		line, err := p.reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(line)
		if slices.Contains(choices, choice) {
			return choice, nil
		}
		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			common.LogWarn("failed to write prompt error", common.Fields{"error": err.Error()})
		}
	}
}

// NewProgressBar creates the progress bar used by long-running commands.
func NewProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}
