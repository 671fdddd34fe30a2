package client

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/tanpawarit/research-agent/internal/agent/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// Renderer prints turn progress to a terminal. Tokens are written as they
// arrive while the turn is loading; the final answer and sources once it is not.
type Renderer struct {
	out io.Writer
	mu  sync.Mutex

	printed  int
	steps    map[string]StepStatus
	finished bool
}

func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = io.Discard
	}
	return &Renderer{out: out, steps: make(map[string]StepStatus)}
}

// Update renders whatever changed in t since the previous call.
func (r *Renderer) Update(t *Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return nil
	}

	for _, s := range t.Steps {
		if r.steps[s.Node] == s.Status {
			continue
		}
		r.steps[s.Node] = s.Status
		if err := r.writeLine(stepLine(s)); err != nil {
			return err
		}
	}

	if t.Loading && len(t.Content) > r.printed {
		if _, err := io.WriteString(r.out, dimStyle.Render(t.Content[r.printed:])); err != nil {
			return err
		}
		r.printed = len(t.Content)
	}
	return nil
}

// Finish prints the final answer and sources once.
func (r *Renderer) Finish(t *Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return nil
	}
	r.finished = true

	if r.printed > 0 {
		if err := r.writeLine(""); err != nil {
			return err
		}
	}
	return writeAnswer(r.out, t.Content, t.Sources)
}

func (r *Renderer) writeLine(line string) error {
	_, err := io.WriteString(r.out, line+"\n")
	return err
}

func stepLine(s Step) string {
	if s.Status == StepCompleted {
		return doneStyle.Render("✓ " + s.Label)
	}
	return loadingStyle.Render("… " + s.Label)
}

// RenderResponse prints a buffered query response.
func RenderResponse(out io.Writer, resp *QueryResponse) error {
	return writeAnswer(out, resp.Response, resp.Sources)
}

func writeAnswer(out io.Writer, content string, srcs []model.Source) error {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n")
	if len(srcs) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Sources"))
		b.WriteString("\n")
		for i, s := range srcs {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, s.Title, sourceStyle.Render(s.URL))
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}
