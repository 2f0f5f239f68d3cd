package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/apresai/narrator/internal/config"
	"github.com/apresai/narrator/internal/tts"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Add a TTS backend to the config file interactively",
	Long: `Opens a menu to describe one TTS backend and appends it to the config
file. Run it again to add failover backends; they are tried in the order
they were added.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// menuItem is a single field in the backend form.
type menuItem struct {
	label    string
	value    string
	hint     string
	options  []menuOption
	required bool
	editing  bool
	cursor   int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// tuiModel is the Bubble Tea model for the backend form.
type tuiModel struct {
	items     []menuItem
	cursor    int
	state     menuState
	err       error
	confirmed bool
	cancelled bool
}

var (
	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	requiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)
)

const (
	idxProvider = iota
	idxName
	idxRegion
	idxKey
	idxKeySecret
	idxCredentials
	idxProfile
	idxVoice
	idxRate
	idxSave
)

func voiceOptions(provider string) []menuOption {
	opts := []menuOption{{label: "Use the voice from the SSML (default)", value: ""}}
	voices, err := tts.AvailableVoices(provider)
	if err != nil {
		return opts
	}
	for _, v := range voices {
		opts = append(opts, menuOption{
			label: fmt.Sprintf("%s - %s (%s)", v.Alias, v.Description, v.Gender),
			value: v.ID,
		})
	}
	return opts
}

func buildMenuItems(provider string) []menuItem {
	items := []menuItem{
		idxProvider: {
			label: "Provider",
			value: provider,
			options: []menuOption{
				{label: "Azure Speech (default)", value: tts.KindAzure},
				{label: "Google Cloud Text-to-Speech", value: tts.KindGoogle},
				{label: "Amazon Polly", value: tts.KindPolly},
			},
		},
		idxName:        {label: "Name", hint: "(default <provider>-<n>)"},
		idxRegion:      {label: "Region", hint: "(e.g. eastus, us-east-1)"},
		idxKey:         {label: "Subscription key", hint: "(literal or ${AZURE_SPEECH_KEY})"},
		idxKeySecret:   {label: "Key secret", hint: "(AWS Secrets Manager name)"},
		idxCredentials: {label: "Credentials file", hint: "(default application credentials)"},
		idxProfile:     {label: "AWS profile", hint: "(default profile)"},
		idxVoice:       {label: "Voice", options: voiceOptions(provider)},
		idxRate: {
			label: "Requests/minute",
			options: []menuOption{
				{label: "Unlimited (default)", value: ""},
				{label: "20 (free tier)", value: "20"},
				{label: "60", value: "60"},
				{label: "200", value: "200"},
			},
		},
		idxSave: {label: ">>> Save <<<"},
	}
	if provider == tts.KindAzure {
		items[idxRegion].required = true
	}

	for i := range items {
		for j, opt := range items[i].options {
			if opt.value == items[i].value {
				items[i].cursor = j
				break
			}
		}
	}
	return items
}

func initialTUIModel() tuiModel {
	return tuiModel{
		items: buildMenuItems(tts.KindAzure),
		state: stateMenu,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) provider() string {
	return m.items[idxProvider].value
}

// applies reports whether field idx means anything for the chosen provider.
func (m tuiModel) applies(idx int) bool {
	switch idx {
	case idxKey, idxKeySecret:
		return m.provider() == tts.KindAzure
	case idxCredentials:
		return m.provider() == tts.KindGoogle
	case idxProfile:
		return m.provider() == tts.KindPolly
	case idxRegion:
		return m.provider() != tts.KindGoogle
	}
	return true
}

func (m tuiModel) isTextInput(idx int) bool {
	return len(m.items[idx].options) == 0 && idx != idxSave
}

// backend returns the form as a config entry.
func (m tuiModel) backend() config.Backend {
	value := func(idx int) string {
		if !m.applies(idx) {
			return ""
		}
		return strings.TrimSpace(m.items[idx].value)
	}
	rate, _ := strconv.Atoi(value(idxRate))
	return config.Backend{
		Name:                  value(idxName),
		Provider:              m.provider(),
		Region:                value(idxRegion),
		SubscriptionKey:       value(idxKey),
		SubscriptionKeySecret: value(idxKeySecret),
		CredentialsFile:       value(idxCredentials),
		Profile:               value(idxProfile),
		Voice:                 value(idxVoice),
		RequestsPerMinute:     rate,
	}
}

func (m tuiModel) validate() error {
	if m.provider() != tts.KindAzure {
		return nil
	}
	b := m.backend()
	if b.Region == "" {
		return errors.New("Region is required for Azure")
	}
	if b.SubscriptionKey == "" && b.SubscriptionKeySecret == "" {
		return errors.New("Azure needs a subscription key or a key secret")
	}
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch m.state {
	case stateMenu:
		return m.updateMenu(key)
	case stateEditing:
		return m.updateEditing(key)
	}
	return m, nil
}

func (m tuiModel) move(delta int) int {
	next := m.cursor
	for {
		next += delta
		if next < 0 || next >= len(m.items) {
			return m.cursor
		}
		if m.applies(next) {
			return next
		}
	}
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		m.cursor = m.move(-1)

	case "down", "j":
		m.cursor = m.move(1)

	case "enter", " ":
		if m.cursor == idxSave {
			if err := m.validate(); err != nil {
				m.err = err
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		}
		m.state = stateEditing
		m.items[m.cursor].editing = true
		m.err = nil
	}
	return m, nil
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := m.cursor
	item := &m.items[idx]

	if m.isTextInput(idx) {
		switch msg.String() {
		case "enter":
			item.editing = false
			m.state = stateMenu
			m.cursor = m.move(1)
		case "esc":
			item.editing = false
			m.state = stateMenu
		case "backspace":
			if len(item.value) > 0 {
				_, size := utf8.DecodeLastRuneInString(item.value)
				item.value = item.value[:len(item.value)-size]
			}
		case "ctrl+u":
			item.value = ""
		default:
			if msg.Type == tea.KeyRunes {
				item.value += string(msg.Runes)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu

		// A new provider has a different voice catalog.
		if idx == idxProvider {
			m.items[idxVoice].options = voiceOptions(item.value)
			m.items[idxVoice].value = ""
			m.items[idxVoice].cursor = 0
			m.items[idxRegion].required = item.value == tts.KindAzure
		}
		m.cursor = m.move(1)

	case "esc":
		item.editing = false
		m.state = stateMenu

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("narrator: new TTS backend")))
	b.WriteString("\n")

	for i, item := range m.items {
		if !m.applies(i) {
			continue
		}
		isActive := m.cursor == i

		if i == idxSave {
			b.WriteString("\n")
			if isActive {
				b.WriteString("  " + buttonStyle.Render(" Save "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Save "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		label := item.label
		if item.required {
			label += requiredStyle.Render("*")
		}

		var value string
		switch {
		case item.editing && m.isTextInput(i):
			value = valueStyle.Render(item.value + "_")
		case item.value == "" && len(item.options) > 0:
			value = dimStyle.Render(item.options[0].label)
		case item.value == "":
			value = dimStyle.Render(item.hint)
		default:
			value = item.value
			for _, opt := range item.options {
				if opt.value == item.value {
					value = opt.label
					break
				}
			}
			value = valueStyle.Render(value)
		}

		b.WriteString(cursor + labelStyle.Render(label) + " " + value + "\n")

		if item.editing && !m.isTextInput(i) {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	switch {
	case m.state == stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case m.isTextInput(m.cursor):
		b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
	default:
		b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

func runInit(cmd *cobra.Command, args []string) error {
	path := flagConfig
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	p := tea.NewProgram(initialTUIModel(), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tuiModel)
	if final.cancelled || !final.confirmed {
		return errors.New("cancelled")
	}

	if err := config.AddBackend(appFs, path, final.backend()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s backend to %s\n", final.provider(), path)
	return nil
}
