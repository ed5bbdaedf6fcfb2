// Package tui provides the interactive Bubble Tea chat REPL for
// promptroute.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/cli"
	"github.com/theirongolddev/promptroute/internal/engine"
	"github.com/theirongolddev/promptroute/internal/session"
)

var (
	userStyle   = lipgloss.NewStyle().Foreground(cli.ColorBlue).Bold(true)
	answerStyle = lipgloss.NewStyle().Foreground(cli.ColorText)
	targetStyle = lipgloss.NewStyle().Foreground(cli.ColorAccent)
	metaStyle   = lipgloss.NewStyle().Foreground(cli.ColorTextMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(cli.ColorRed)
	helpStyle   = lipgloss.NewStyle().Foreground(cli.ColorTextDim)
)

// turnDoneMsg is sent when a dispatch finishes.
type turnDoneMsg struct {
	target classify.Target
	msg    *session.Message
	err    error
}

// Chat is the root Bubble Tea model for the chat REPL.
type Chat struct {
	eng  *engine.Engine
	sess *session.Session

	input   textinput.Model
	spinner spinner.Model
	busy    bool

	lines []string
	width int
}

// NewChat creates a chat REPL bound to one session.
func NewChat(eng *engine.Engine, sess *session.Session) Chat {
	ti := textinput.New()
	ti.Placeholder = "Ask anything (/help for commands)"
	ti.CharLimit = 2000
	ti.Width = 70
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)

	return Chat{
		eng:     eng,
		sess:    sess,
		input:   ti,
		spinner: sp,
		lines: []string{
			metaStyle.Render(fmt.Sprintf("  session %s • model %s", sess.ID, sess.Model)),
			"",
		},
	}
}

// Init implements tea.Model.
func (c Chat) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (c Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		return c, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return c, tea.Quit
		case tea.KeyEnter:
			if c.busy {
				return c, nil
			}
			return c.submit()
		}

	case spinner.TickMsg:
		if !c.busy {
			return c, nil
		}
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd

	case turnDoneMsg:
		c.busy = false
		c.appendTurn(msg)
		return c, nil
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c Chat) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(c.input.Value())
	if text == "" {
		return c, nil
	}
	c.input.Reset()

	if strings.HasPrefix(text, "/") {
		return c.runCommand(text)
	}

	c.lines = append(c.lines, userStyle.Render("  you ")+answerStyle.Render(text))
	c.busy = true
	return c, tea.Batch(c.spinner.Tick, dispatchCmd(c.eng, c.sess, text))
}

func (c Chat) runCommand(text string) (tea.Model, tea.Cmd) {
	switch text {
	case "/quit", "/exit":
		return c, tea.Quit

	case "/help":
		c.lines = append(c.lines,
			helpStyle.Render("  /totals   session usage totals"),
			helpStyle.Render("  /history  recorded turns"),
			helpStyle.Render("  /pricing  active pricing table provenance"),
			helpStyle.Render("  /reset    clear history and totals"),
			helpStyle.Render("  /quit     leave the chat"),
			"")

	case "/totals":
		c.lines = append(c.lines,
			metaStyle.Render("  "+cli.FormatTotalsLine(c.sess.Totals())), "")

	case "/history":
		turns := c.sess.History()
		if len(turns) == 0 {
			c.lines = append(c.lines, metaStyle.Render("  no turns recorded yet"), "")
			break
		}
		for i, t := range turns {
			c.lines = append(c.lines,
				metaStyle.Render(fmt.Sprintf("  %2d. %s", i+1, truncate(t.User.Content, 60))))
		}
		c.lines = append(c.lines, "")

	case "/pricing":
		info := c.eng.Pricing().Info()
		c.lines = append(c.lines,
			metaStyle.Render(fmt.Sprintf("  pricing: %s • %d models", info.Source, info.ModelCount)), "")

	case "/reset":
		c.sess.Reset()
		c.lines = append(c.lines, metaStyle.Render("  session reset"), "")

	default:
		c.lines = append(c.lines, errorStyle.Render("  unknown command "+text), "")
	}
	return c, nil
}

func (c *Chat) appendTurn(msg turnDoneMsg) {
	if msg.err != nil && msg.msg == nil {
		c.lines = append(c.lines, errorStyle.Render("  "+msg.err.Error()), "")
		return
	}

	label := targetStyle.Render(fmt.Sprintf("  [%s] ", msg.target))
	if msg.err != nil {
		c.lines = append(c.lines, label+errorStyle.Render(msg.msg.Content))
	} else {
		c.lines = append(c.lines, label+answerStyle.Render(msg.msg.Content))
	}

	if ev := msg.msg.Evidence; ev != nil {
		switch ev.Kind {
		case session.EvidenceCitations:
			for _, cit := range ev.Citations {
				c.lines = append(c.lines,
					metaStyle.Render(fmt.Sprintf("    source: %s (%.2f)", cit.FileName, cit.Score)))
			}
		case session.EvidenceSQL:
			c.lines = append(c.lines,
				metaStyle.Render(fmt.Sprintf("    sql: %s (%d rows)", ev.SQL, ev.RowCount)))
		}
	}
	if msg.msg.Usage != nil {
		c.lines = append(c.lines, metaStyle.Render("    "+cli.FormatUsageLine(*msg.msg.Usage)))
	}
	c.lines = append(c.lines, "")
}

// View implements tea.Model.
func (c Chat) View() string {
	var b strings.Builder
	b.WriteString("\n")
	for _, line := range c.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if c.busy {
		b.WriteString("  " + c.spinner.View() + metaStyle.Render(" thinking..."))
	} else {
		b.WriteString("  " + c.input.View())
	}
	b.WriteString("\n")
	return b.String()
}

// dispatchCmd runs one turn off the UI goroutine.
func dispatchCmd(eng *engine.Engine, sess *session.Session, query string) tea.Cmd {
	return func() tea.Msg {
		target := eng.Route(query, sess.Capabilities)
		msg, err := eng.Dispatch(context.Background(), sess, query)
		return turnDoneMsg{target: target, msg: msg, err: err}
	}
}

// truncate shortens s to at most n characters. Counted in runes so a
// multi-byte character is never split.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
