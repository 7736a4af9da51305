package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
)

// prompter asks questions on the terminal. With yes set every confirmation is accepted without asking.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newPrompter(in *bufio.Reader, out io.Writer, yes bool) *prompter {
	return &prompter{in: in, out: out, yes: yes}
}

// Confirm accepts "y" and "yes" in any case. Anything else, including an empty answer, declines.
func (p *prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if p.yes {
		return true, nil
	}
	fmt.Fprintf(p.out, "%s (y/N) ", question)
	answer, err := p.readLine(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Choose prints the numbered options and returns the index of the chosen one.
func (p *prompter) Choose(ctx context.Context, question string, options []string) (int, error) {
	for i, option := range options {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, option)
	}
	fmt.Fprintf(p.out, "%s ", question)
	answer, err := p.readLine(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	choice, err := strconv.Atoi(answer)
	if err != nil || choice < 1 || choice > len(options) {
		return 0, errors.Wrapf(errs.InvalidArgument, "invalid choice %q", answer)
	}
	return choice - 1, nil
}

func (p *prompter) readLine(ctx context.Context) (string, error) {
	type line struct {
		text string
		err  error
	}
	lines := make(chan line, 1)
	go func() {
		text, err := p.in.ReadString('\n')
		lines <- line{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", errors.WithStack(ctx.Err())
	case l := <-lines:
		if l.err != nil && !(errors.Is(l.err, io.EOF) && l.text != "") {
			return "", errors.Wrap(l.err, "can't read input")
		}
		return strings.TrimSpace(l.text), nil
	}
}
