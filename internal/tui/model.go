package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"corpusqa/internal/domain"
	"corpusqa/internal/service"
)

// RetrieverPort is the TUI-facing subset of the retrieval service.
type RetrieverPort interface {
	Retrieve(ctx context.Context, query string, opts service.Options) (*service.Result, error)
	Diagnostics(ctx context.Context) domain.Diagnostics
}

// Model is the Bubble Tea model for the query client.
type Model struct {
	retriever RetrieverPort
	opts      service.Options
	input     textinput.Model
	viewport  viewport.Model
	result    *service.Result
	summary   string
	status    string
	verdict   string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(retriever RetrieverPort, opts service.Options, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe una consulta y presiona Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		retriever: retriever,
		opts:      opts,
		input:     ti,
		viewport:  vp,
		summary:   summary,
		status:    "Corpus cargado. Escribe para buscar.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 2                                    // verdict + status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				res, err := m.retriever.Retrieve(context.Background(), q, m.opts)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.result = nil
				} else {
					m.result = res
					m.cursor = 0
					m.lastQuery = q
					m.status = fmt.Sprintf("Resultados para %q", q)
					m.verdict = renderVerdict(res)
				}
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "down":
			if m.result != nil && len(m.result.Results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.result.Results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if m.result != nil && len(m.result.Results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.result.Results)) % len(m.result.Results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("CorpusQA")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + m.verdict + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if m.result == nil {
		return "Sin resultados todavía."
	}
	switch m.result.Status {
	case service.StatusCorpusUnavailable:
		return "El corpus no está disponible: " + m.result.Reason
	case service.StatusNoResults:
		if m.result.Reason != "" {
			return "Sin resultados. " + m.result.Reason
		}
		return "Sin resultados para esta consulta."
	}
	if len(m.result.Results) == 0 {
		return "Sin resultados para esta consulta."
	}
	r := m.result.Results[m.cursor]
	title := fmt.Sprintf("Evidencia %d/%d  score=%.3f  fuente=%s",
		m.cursor+1, len(m.result.Results), r.Similarity, r.Metadata.FileName)
	body := highlightBestSentence(r.Content, m.lastQuery)
	if r.QualityReason != "" {
		body += "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Calidad: "+r.QualityReason)
	}
	return title + "\n\n" + body
}

func renderVerdict(res *service.Result) string {
	switch res.Status {
	case service.StatusAnswerable:
		return answerableStyle.Render(fmt.Sprintf(
			"✔ Evidencia suficiente (score %.2f, %d resultados)",
			res.Context.TopScore, res.Context.ResultsCount))
	case service.StatusInsufficientEvidence:
		return insufficientStyle.Render("✘ Evidencia insuficiente: " + res.Reason)
	case service.StatusNoResults:
		return insufficientStyle.Render("✘ Sin resultados")
	case service.StatusCorpusUnavailable:
		return insufficientStyle.Render("✘ Corpus no disponible")
	default:
		return ""
	}
}

var (
	resultBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerableStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	insufficientStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	unicodeWordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe        = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
