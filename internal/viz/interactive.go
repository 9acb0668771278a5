package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	stageScenario = iota
	stagePreset
	stageLive
)

// Builder creates the live model for a scenario and tuning preset.
type Builder func(scenario, preset string) (Model, error)

// Picker lets the user choose a scenario and a preset, then hands over to
// the live view.
type Picker struct {
	stage     int
	cursor    int
	scenarios []string
	presets   []string
	info      map[string]string
	scenario  string
	build     Builder
	live      Model
	err       error
}

// NewPicker lists scenarios and presets in the given order. info holds
// optional one-line descriptions keyed by scenario name.
func NewPicker(scenarios, presets []string, info map[string]string, build Builder) *Picker {
	return &Picker{
		scenarios: scenarios,
		presets:   presets,
		info:      info,
		build:     build,
	}
}

func (p *Picker) Init() tea.Cmd { return nil }

func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.stage == stageLive {
		next, cmd := p.live.Update(msg)
		p.live = next.(Model)
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	items := p.items()
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(items)-1 {
			p.cursor++
		}
	case "esc", "backspace":
		if p.stage == stagePreset {
			p.stage = stageScenario
			p.cursor = 0
		}
	case "enter", " ":
		if len(items) == 0 {
			return p, nil
		}
		choice := items[p.cursor]
		if p.stage == stageScenario {
			p.scenario = choice
			p.stage = stagePreset
			p.cursor = 0
			return p, nil
		}
		live, err := p.build(p.scenario, choice)
		if err != nil {
			p.err = err
			return p, nil
		}
		p.live = live
		p.stage = stageLive
		return p, p.live.Init()
	}
	return p, nil
}

func (p *Picker) items() []string {
	if p.stage == stageScenario {
		return p.scenarios
	}
	return p.presets
}

func (p *Picker) View() string {
	if p.stage == stageLive {
		return p.live.View()
	}

	st := currentStyles()
	muted := lipgloss.NewStyle().Foreground(CurrentTheme.Muted)

	var b strings.Builder
	b.WriteString("\n  " + st.header.Render("LATCTL") + "\n")
	if p.stage == stageScenario {
		b.WriteString("  " + muted.Render("select scenario") + "\n\n")
	} else {
		b.WriteString("  " + muted.Render(fmt.Sprintf("select preset for %s", p.scenario)) + "\n\n")
	}

	for i, name := range p.items() {
		desc := ""
		if p.stage == stageScenario {
			desc = p.info[name]
		}
		if i == p.cursor {
			b.WriteString("  " + st.active.Render("> "+fmt.Sprintf("%-14s", name)) + " " + muted.Render(desc) + "\n")
		} else {
			b.WriteString("    " + st.value.Render(fmt.Sprintf("%-14s", name)) + " " + muted.Render(desc) + "\n")
		}
	}

	if p.err != nil {
		b.WriteString("\n  " + st.bad.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n  " + muted.Render("↑↓ move   enter select   esc back   q quit") + "\n")
	return b.String()
}
