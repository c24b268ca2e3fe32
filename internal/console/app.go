package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/services"
)

// ConfirmFunc redeems an email confirmation token.
type ConfirmFunc func(ctx context.Context, token string) error

// App runs the interactive loop: it renders the controller's active view,
// reads one command and applies it.
type App struct {
	Ctrl    *services.SessionController
	Browser *services.EntryBrowser
	Prompt  *Prompter
	Out     io.Writer
	// ConfirmEmail backs the "confirm" command; nil hides it.
	ConfirmEmail ConfirmFunc

	session *services.EditingSession
}

// NewApp wires an App; prompt must be the Confirmer and Notifier the
// controller was built with so confirmations read from the same input.
func NewApp(ctrl *services.SessionController, prompt *Prompter, out io.Writer) *App {
	return &App{Ctrl: ctrl, Browser: services.NewEntryBrowser(), Prompt: prompt, Out: out}
}

// Run boots the session and loops until the user quits, input ends or
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.Ctrl.Boot(ctx)
	for ctx.Err() == nil {
		var err error
		switch a.Ctrl.Snapshot().View {
		case domain.ViewAuthenticating:
			err = a.authStep(ctx)
		case domain.ViewBrowsing:
			err = a.dashboardStep(ctx)
		case domain.ViewEditing:
			err = a.editorStep(ctx)
		}
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *App) authStep(ctx context.Context) error {
	_, _ = fmt.Fprintln(a.Out)
	RenderAuth(a.Out)
	if a.ConfirmEmail != nil {
		_, _ = fmt.Fprintln(a.Out, "  confirm    confirm your email address")
	}
	cmd, err := a.Prompt.Ask("> ")
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "":
	case "login":
		email, err := a.Prompt.Ask("Email: ")
		if err != nil {
			return err
		}
		pw, err := a.Prompt.AskSecret("Password: ")
		if err != nil {
			return err
		}
		if _, err := a.Ctrl.Login(ctx, strings.TrimSpace(email), pw); err != nil {
			a.report(err)
		}
	case "register":
		name, err := a.Prompt.Ask("Name (optional): ")
		if err != nil {
			return err
		}
		email, err := a.Prompt.Ask("Email: ")
		if err != nil {
			return err
		}
		pw, err := a.Prompt.AskSecret("Password: ")
		if err != nil {
			return err
		}
		reg, err := a.Ctrl.Register(ctx, strings.TrimSpace(email), pw, name)
		if err != nil {
			a.report(err)
			return nil
		}
		if reg.Status == services.RegistrationPendingConfirmation {
			_, _ = okStyle.Fprintln(a.Out, services.MsgConfirmEmail)
		}
	case "confirm":
		if a.ConfirmEmail == nil {
			a.unknown(cmd)
			return nil
		}
		tok, err := a.Prompt.Ask("Confirmation token: ")
		if err != nil {
			return err
		}
		if err := a.ConfirmEmail(ctx, strings.TrimSpace(tok)); err != nil {
			a.report(err)
			return nil
		}
		_, _ = okStyle.Fprintln(a.Out, "Email confirmed. You can sign in now.")
	case "quit", "exit":
		return ErrQuit
	default:
		a.unknown(cmd)
	}
	return nil
}

func (a *App) dashboardStep(ctx context.Context) error {
	st := a.Ctrl.Snapshot()
	visible := a.Browser.Visible(st.Entries)
	_, _ = fmt.Fprintln(a.Out)
	RenderDashboard(a.Out, st, a.Browser.Filter(), visible)

	line, err := a.Prompt.Ask("> ")
	if err != nil {
		return err
	}
	cmd, arg := splitCommand(line)

	switch cmd {
	case "":
	case "new":
		a.session = a.Ctrl.BeginNewEntry()
	case "edit", "delete":
		e, ok := a.pick(visible, arg)
		if !ok {
			return nil
		}
		if cmd == "edit" {
			a.session = a.Ctrl.BeginEditEntry(e)
			return nil
		}
		if err := a.Ctrl.DeleteEntry(ctx, e.ID); err != nil {
			a.report(err)
		}
	case "filter":
		if err := a.Browser.SetFilter(arg); err != nil {
			a.report(err)
		}
	case "refresh":
		if st.User != nil {
			if err := a.Ctrl.Load(ctx, st.User.ID); err != nil {
				a.report(err)
			}
		}
	case "logout":
		if err := a.Ctrl.Logout(ctx); err != nil {
			a.report(err)
		}
		a.Browser = services.NewEntryBrowser()
	case "quit", "exit":
		return ErrQuit
	default:
		a.unknown(line)
	}
	return nil
}

func (a *App) editorStep(ctx context.Context) error {
	if a.session == nil {
		a.Ctrl.Cancel()
		return nil
	}
	s := a.session
	_, _ = fmt.Fprintln(a.Out)
	RenderEditor(a.Out, s.Snapshot(), a.Ctrl.ReflectionAvailable())

	line, err := a.Prompt.Ask("> ")
	if err != nil {
		return err
	}
	cmd, arg := splitCommand(line)

	switch cmd {
	case "":
	case "title":
		_ = s.UpdateField(services.FieldTitle, arg)
	case "content":
		text := arg
		if text == "" {
			if text, err = a.Prompt.AskMultiline("Write your thoughts; finish with a line containing only '.'"); err != nil {
				return err
			}
		}
		_ = s.UpdateField(services.FieldContent, text)
	case "mood":
		if err := s.UpdateField(services.FieldMood, arg); err != nil {
			a.report(err)
		}
	case "tags":
		_ = s.UpdateField(services.FieldTags, arg)
	case "reflect":
		if !a.Ctrl.ReflectionAvailable() {
			_, _ = faint.Fprintln(a.Out, "Reflections are not configured.")
			return nil
		}
		if strings.TrimSpace(s.Snapshot().Content) == "" {
			_, _ = faint.Fprintln(a.Out, "Write something first.")
			return nil
		}
		_, _ = faint.Fprintln(a.Out, "Reflecting...")
		if err := s.RequestReflection(ctx); err != nil && !errors.Is(err, services.ErrStale) {
			a.report(err)
		}
	case "discard":
		s.DiscardReflection()
	case "save":
		saved, err := s.Save(ctx)
		switch {
		case err != nil:
			a.report(err)
		case saved == nil:
			_, _ = errStyle.Fprintln(a.Out, "Title and content are required.")
		default:
			a.session = nil
			_, _ = okStyle.Fprintln(a.Out, "Saved.")
		}
	case "cancel":
		a.Ctrl.Cancel()
		a.session = nil
	case "quit", "exit":
		return ErrQuit
	default:
		a.unknown(line)
	}
	return nil
}

// pick resolves a 1-based position in the visible list.
func (a *App) pick(visible []domain.JournalEntry, arg string) (domain.JournalEntry, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(visible) {
		_, _ = errStyle.Fprintf(a.Out, "No entry %q.\n", arg)
		return domain.JournalEntry{}, false
	}
	return visible[n-1], true
}

// report prints err unless the controller already raised a notice for it.
func (a *App) report(err error) {
	switch {
	case services.IsBackendError(err),
		errors.Is(err, services.ErrGeneration),
		errors.Is(err, services.ErrUnavailable):
		return
	}
	_, _ = errStyle.Fprintln(a.Out, Describe(err))
}

func (a *App) unknown(cmd string) {
	_, _ = errStyle.Fprintf(a.Out, "Unknown command %q.\n", strings.TrimSpace(cmd))
}

// Describe renders err as a one-line user message.
func Describe(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, services.ErrDuplicateAccount):
		return "An account with this email already exists."
	case errors.Is(err, services.ErrConfirmationPending):
		return "Please confirm your email address before signing in."
	case errors.Is(err, services.ErrNotAuthenticated):
		return "Your session has ended. Please sign in again."
	case errors.Is(err, services.ErrBusy):
		return "Still working on the previous request."
	case errors.Is(err, services.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
		return strings.ToUpper(msg[:1]) + msg[1:] + "."
	case errors.Is(err, services.ErrGateway):
		return "Could not reach the journal service."
	default:
		return err.Error()
	}
}

// splitCommand separates the command word from the rest of the line.
func splitCommand(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
