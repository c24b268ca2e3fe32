package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/tbourn/go-journal/internal/services"
)

// ErrQuit is returned when input ends or the user quits.
var ErrQuit = errors.New("quit")

// Prompter reads line-oriented input. One Prompter serves the command loop
// and the delete confirmation, so both consume the same stream.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	// readSecret reads one line without echo; nil when in is not a terminal.
	readSecret func() ([]byte, error)
}

// NewPrompter reads from in and prints prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.readSecret = func() ([]byte, error) { return term.ReadPassword(fd) }
	}
	return p
}

// Ask prints label and returns the next line without its newline.
func (p *Prompter) Ask(label string) (string, error) {
	if label != "" {
		_, _ = fmt.Fprint(p.out, label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", ErrQuit
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// AskSecret is Ask without echo when input is a terminal. Piped input,
// or input already buffered, is read as a plain line.
func (p *Prompter) AskSecret(label string) (string, error) {
	if p.readSecret == nil || p.in.Buffered() > 0 {
		return p.Ask(label)
	}
	_, _ = fmt.Fprint(p.out, label)
	b, err := p.readSecret()
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrQuit
		}
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// AskMultiline reads lines until one consisting of a single ".".
func (p *Prompter) AskMultiline(label string) (string, error) {
	_, _ = fmt.Fprintln(p.out, label)
	var lines []string
	for {
		line, err := p.Ask("")
		if err != nil {
			return "", err
		}
		if line == "." {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

// Confirm implements services.Confirmer; anything but y/yes declines.
func (p *Prompter) Confirm(_ context.Context, prompt string) bool {
	ans, err := p.Ask(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(ans)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Notify implements services.Notifier.
func (p *Prompter) Notify(n services.Notice) {
	switch n.Level {
	case services.NoticeError:
		_, _ = errStyle.Fprintln(p.out, n.Message)
	case services.NoticeSuccess:
		_, _ = okStyle.Fprintln(p.out, n.Message)
	default:
		_, _ = fmt.Fprintln(p.out, n.Message)
	}
}

var (
	_ services.Confirmer = (*Prompter)(nil)
	_ services.Notifier  = (*Prompter)(nil)
)
