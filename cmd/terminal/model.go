package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/sevigo/doc-sentry/internal/core"
)

// docItem adapts an ImpactedDoc to the bubbles list.
type docItem struct {
	doc core.ImpactedDoc
}

func (i docItem) Title() string { return fmt.Sprintf("[%s] %s", i.doc.Priority, i.doc.DocPath) }
func (i docItem) Description() string {
	return fmt.Sprintf("score %.1f · %d entities · community %d",
		i.doc.Score, len(i.doc.ChangedEntities), i.doc.CommunitySize)
}
func (i docItem) FilterValue() string { return i.doc.DocPath }

type model struct {
	styles   styles
	result   *core.AnalysisResult
	list     list.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	showDoc  bool
	ready    bool
}

func initialModel(result *core.AnalysisResult) *model {
	items := make([]list.Item, len(result.ImpactedDocs))
	for i, doc := range result.ImpactedDocs {
		items[i] = docItem{doc: doc}
	}

	docList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	docList.Title = fmt.Sprintf("Impacted docs · %s → %s", result.OldRef, result.NewRef)
	docList.SetShowStatusBar(false)

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))

	return &model{
		styles:   defaultStyles(),
		result:   result,
		list:     docList,
		renderer: renderer,
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-2)
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.showDoc {
				m.showDoc = false
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			if !m.showDoc {
				if item, ok := m.list.SelectedItem().(docItem); ok {
					m.viewport.SetContent(m.renderDetail(item.doc))
					m.viewport.GotoTop()
					m.showDoc = true
				}
				return m, nil
			}
		case "esc":
			m.showDoc = false
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.showDoc {
		m.viewport, cmd = m.viewport.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m *model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.showDoc {
		return m.viewport.View() + "\n" + m.styles.footer.Render("esc: back · q: quit")
	}
	return m.list.View() + "\n" + m.styles.footer.Render("enter: details · q: quit")
}

// renderDetail builds the markdown detail view for one impacted doc.
func (m *model) renderDetail(doc core.ImpactedDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.DocPath)
	fmt.Fprintf(&b, "**Priority:** %s · **Score:** %.1f · **Community size:** %d\n\n",
		doc.Priority, doc.Score, doc.CommunitySize)

	b.WriteString("## Changed entities\n\n")
	for _, entity := range doc.ChangedEntities {
		fmt.Fprintf(&b, "- `%s` (%d mentions)\n", entity, doc.MentionCounts[entity])
	}

	b.WriteString("\n## Reasons\n\n")
	for _, reason := range doc.Reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}

	if m.renderer == nil {
		return b.String()
	}
	rendered, err := m.renderer.Render(b.String())
	if err != nil {
		return b.String()
	}
	return rendered
}
