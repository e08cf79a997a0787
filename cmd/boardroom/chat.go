package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/prompt"
	"knittex.app/boardroom/internal/session"
)

var errQuit = errors.New("quit")

const chatHelp = `Commands:
  /switch <manager>   open another conversation (meeting, dyeing, finishing, lab, knitting, qa, planning)
  /managers           list who you can talk to
  /image <path> [text] send an image with an optional message
  /save <n>           save reply [n] to notes
  /notes              list saved notes
  /delnote <id>       delete a note
  /clearnotes         delete all notes
  /clear              clear this conversation
  /history            reprint this conversation
  /quit               leave`

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [manager]",
		Short: "Open an interactive chat, in the meeting room unless a manager is named",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who := ""
			if len(args) == 1 {
				who = args[0]
			}
			return runChat(cmd, opts, who)
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions, who string) error {
	initial := model.CounterpartMeetingRoom
	if who != "" {
		c, err := model.ParseCounterpart(who)
		if err != nil {
			return err
		}
		initial = c
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newREPL(cmd.InOrStdin(), cmd.OutOrStdout(), opts.yes)

	a, err := newApp(ctx, opts, initial, session.ConfirmFunc(r.confirm))
	if err != nil {
		return err
	}
	defer a.close(ctx)

	r.ctrl = a.ctrl
	r.lang = a.language
	r.active.Store(string(initial))

	return r.run(ctx)
}

// repl reads commands and messages line by line. Events from the session
// are rendered concurrently; mu serialises output.
type repl struct {
	ctrl        *session.Controller
	lang        model.Language
	lines       chan string
	out         io.Writer
	mu          sync.Mutex
	active      atomic.Value // string
	interactive bool
	autoYes     bool
}

func newREPL(in io.Reader, out io.Writer, autoYes bool) *repl {
	r := &repl{
		lines:       make(chan string),
		out:         out,
		interactive: isTerminal(in),
		autoYes:     autoYes,
	}

	go func() {
		defer close(r.lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			r.lines <- scanner.Text()
		}
	}()

	return r
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *repl) activeCounterpart() model.Counterpart {
	return model.Counterpart(r.active.Load().(string))
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) readLine(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-r.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

func (r *repl) confirm(ctx context.Context, question string) bool {
	if r.autoYes {
		return true
	}
	r.printf("%s [y/N]: ", question)
	line, ok := r.readLine(ctx)
	if !ok {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (r *repl) run(ctx context.Context) error {
	events := r.ctrl.Subscribe()
	go r.render(ctx, events)

	if err := r.showActive(ctx); err != nil {
		return err
	}
	r.printf("%s\n", faintColor.Sprint("Type /help for commands."))

	for {
		if r.interactive {
			r.printf("> ")
		}
		line, ok := r.readLine(ctx)
		if !ok {
			return nil
		}

		err := r.handle(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, session.ErrStopped):
			return err
		case err != nil:
			r.printf("%s\n", noticeColor.Sprint(err.Error()))
		}
	}
}

func (r *repl) render(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Kind {
			case session.EventMessageAppended:
				if ev.Message.Role != model.RoleAssistant || ev.Counterpart != r.activeCounterpart() {
					continue
				}
				r.mu.Lock()
				printMessage(r.out, ev.Index, *ev.Message)
				r.mu.Unlock()
			case session.EventReplyElsewhere:
				r.printf("%s\n", noticeColor.Sprintf("New reply in the %s conversation (/switch to read it).", displayName(ev.Counterpart)))
			case session.EventConversationCleared:
				r.printf("%s\n", noticeColor.Sprintf("Conversation with %s cleared.", displayName(ev.Counterpart)))
			}
		}
	}
}

func (r *repl) showActive(ctx context.Context) error {
	active := r.activeCounterpart()
	messages, err := r.ctrl.Messages(ctx, active)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	printTranscript(r.out, active, messages, r.lang)
	return nil
}

func (r *repl) handle(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return r.send(ctx, line, nil)
	}

	name, rest, _ := strings.Cut(trimmed[1:], " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return errQuit

	case "help", "h", "?":
		r.printf("%s\n", chatHelp)
		return nil

	case "managers", "who":
		r.mu.Lock()
		defer r.mu.Unlock()
		return printManagers(r.out)

	case "switch", "s":
		target, err := model.ParseCounterpart(rest)
		if err != nil {
			return err
		}
		if err := r.ctrl.Switch(ctx, target); err != nil {
			return err
		}
		r.active.Store(string(target))
		return r.showActive(ctx)

	case "image", "img":
		path, caption, _ := strings.Cut(rest, " ")
		if path == "" {
			return fmt.Errorf("usage: /image <path> [text]")
		}
		img, err := loadImage(path)
		if err != nil {
			return err
		}
		return r.send(ctx, strings.TrimSpace(caption), img)

	case "save":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("usage: /save <n>")
		}
		if _, err := r.ctrl.SaveNote(ctx, n-1); err != nil {
			return err
		}
		r.printf("%s\n", noticeColor.Sprint(prompt.NoteSaved(r.lang)))
		return nil

	case "notes":
		notes, err := r.ctrl.Notes(ctx)
		if err != nil {
			return err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		printNotes(r.out, notes)
		return nil

	case "delnote":
		if rest == "" {
			return fmt.Errorf("usage: /delnote <id>")
		}
		return ignoreDeclined(r.ctrl.DeleteNote(ctx, rest))

	case "clearnotes":
		return ignoreDeclined(r.ctrl.ClearNotes(ctx))

	case "clear":
		return ignoreDeclined(r.ctrl.ClearConversation(ctx))

	case "history":
		return r.showActive(ctx)

	default:
		return fmt.Errorf("unknown command /%s, try /help", name)
	}
}

func (r *repl) send(ctx context.Context, text string, img *model.InlineImage) error {
	err := r.ctrl.Send(ctx, text, img)
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		return nil
	case errors.Is(err, session.ErrBusy):
		r.printf("%s\n", noticeColor.Sprint(prompt.Waiting(r.lang)))
		return nil
	case err != nil:
		return err
	}
	r.printf("%s\n", faintColor.Sprint(prompt.Waiting(r.lang)))
	return nil
}

func ignoreDeclined(err error) error {
	if errors.Is(err, session.ErrDeclined) {
		return nil
	}
	return err
}
