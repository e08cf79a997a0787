package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"

	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/prompt"
)

var (
	speakerColor = color.New(color.FgCyan, color.Bold)
	userColor    = color.New(color.FgGreen, color.Bold)
	noticeColor  = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
)

func displayName(c model.Counterpart) string {
	if m, ok := model.LookupManager(c); ok {
		return m.Name
	}
	return string(c)
}

// printMessage writes one transcript entry, numbered for /save.
func printMessage(w io.Writer, index int, msg model.Message) {
	var who string
	switch msg.Role {
	case model.RoleUser:
		who = userColor.Sprint("You")
	default:
		name := displayName(msg.Speaker)
		if m, ok := model.LookupManager(msg.Speaker); ok && m.Role != "" {
			name = fmt.Sprintf("%s (%s)", m.Name, m.Role)
		}
		who = speakerColor.Sprint(name)
	}

	fmt.Fprintf(w, "%s %s %s\n", faintColor.Sprintf("[%d]", index+1), who, faintColor.Sprint(msg.Timestamp.Local().Format("15:04")))
	if msg.Content != "" {
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(msg.Content, "\n", "\n    "))
	}
	for _, a := range msg.Attachments {
		_ = a.Render(w)
	}
}

// printTranscript shows a conversation, or its greeting when it is empty.
func printTranscript(w io.Writer, c model.Counterpart, messages []model.Message, lang model.Language) {
	fmt.Fprintln(w, speakerColor.Sprintf("== %s ==", displayName(c)))
	if len(messages) == 0 {
		fmt.Fprintln(w, faintColor.Sprint(prompt.Greeting(c, lang)))
		return
	}
	for i, msg := range messages {
		printMessage(w, i, msg)
	}
}

func printNotes(w io.Writer, notes []model.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes saved.")
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "%s  %s  %s\n", faintColor.Sprint(n.ID), speakerColor.Sprint(n.ManagerName), faintColor.Sprint(n.Timestamp.Local().Format("2006-01-02 15:04")))
		fmt.Fprintf(w, "    Q: %s\n", n.Question)
		fmt.Fprintf(w, "    A: %s\n", strings.ReplaceAll(n.Answer, "\n", "\n       "))
	}
}

// loadImage reads an image file and detects its MIME type from content.
func loadImage(path string) (*model.InlineImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%s is not an image (detected %s)", path, mtype.String())
	}

	return &model.InlineImage{MIMEType: mtype.String(), Data: data}, nil
}
