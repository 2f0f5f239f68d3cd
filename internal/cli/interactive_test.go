package cli

import (
	"testing"

	"github.com/apresai/narrator/internal/config"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m tuiModel, keys ...string) tuiModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(tuiModel)
	}
	return m
}

func TestInitFormAzure(t *testing.T) {
	m := initialTUIModel()

	// Provider stays azure, then name, region and key.
	m = press(t, m, "down")
	m = press(t, m, "enter", "main", "enter")
	m = press(t, m, "enter", "eastuss", "backspace", "enter")
	m = press(t, m, "enter", "${KEY}", "enter")

	assert.Equal(t, config.Backend{
		Name:            "main",
		Provider:        "azure",
		Region:          "eastus",
		SubscriptionKey: "${KEY}",
	}, m.backend())
}

func TestInitFormSaveValidates(t *testing.T) {
	m := initialTUIModel()
	m.cursor = idxSave

	m = press(t, m, "enter")
	require.Error(t, m.err)
	assert.False(t, m.confirmed)

	m.items[idxRegion].value = "eastus"
	m.items[idxKeySecret].value = "narrator/azure"
	m = press(t, m, "enter")
	assert.NoError(t, m.err)
	assert.True(t, m.confirmed)
}

func TestInitFormProviderSwitch(t *testing.T) {
	m := initialTUIModel()
	m.items[idxKey].value = "stale"

	// Open the provider picker and choose Polly.
	m = press(t, m, "enter", "down", "down", "enter")
	assert.Equal(t, "polly", m.provider())
	assert.Equal(t, idxName, m.cursor)

	// Azure-only fields are skipped and dropped.
	m.cursor = idxRegion
	m = press(t, m, "down")
	assert.Equal(t, idxProfile, m.cursor)
	assert.Empty(t, m.backend().SubscriptionKey)

	// The voice list now comes from the Polly catalog.
	assert.Contains(t, m.items[idxVoice].options[1].label, "-")
	assert.NotEqual(t, voiceOptions("azure"), m.items[idxVoice].options)
}

func TestInitFormQuit(t *testing.T) {
	m := press(t, initialTUIModel(), "q")
	assert.True(t, m.cancelled)
}
