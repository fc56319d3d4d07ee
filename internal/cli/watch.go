package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"shodh/internal/api"
	"shodh/internal/status"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of ingestion jobs",
	Long: `Show a live dashboard of all ingestion jobs, fed by the server's push
stream with a periodic poll as safety net. The dashboard keeps running
until you quit; jobs continue server-side regardless.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Theme holds the color scheme for the dashboard.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg repaints the dashboard even when no update arrived
type tickMsg time.Time

// statusMsg carries one store update
type statusMsg status.Update

// storeClosedMsg signals the update channel was closed
type storeClosedMsg struct{}

// watchModel is the bubbletea model for the job dashboard.
type watchModel struct {
	store    *status.Store
	updates  <-chan status.Update
	progress progress.Model
	theme    Theme
	quitting bool
}

func newWatchModel(store *status.Store, updates <-chan status.Update) watchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(30),
	)

	return watchModel{
		store:    store,
		updates:  updates,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init starts the repaint ticker and the update listener.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		watchTickCmd(),
		m.waitForUpdate(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case statusMsg:
		// State lives in the store; the message only triggers a repaint.
		return m, m.waitForUpdate()

	case storeClosedMsg:
		return m, tea.Quit

	case tickMsg:
		return m, watchTickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nJobs continue on the server. Use 'shodh jobs' to check status.\n")
	}

	entries := m.store.All()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PaperID < entries[j].PaperID
	})

	var b strings.Builder
	b.WriteString("Ingestion jobs\n\n")

	if len(entries) == 0 {
		b.WriteString(m.theme.hintStyle().Render("No jobs yet. Waiting for server events...") + "\n")
	}

	for _, entry := range entries {
		b.WriteString(m.renderRow(entry))
	}

	reconnects := collector.Snapshot().Reconnects
	hint := "Press q to quit"
	if reconnects > 0 {
		hint = fmt.Sprintf("Press q to quit (push stream reconnected %d times)", reconnects)
	}
	b.WriteString("\n" + m.theme.hintStyle().Render(hint) + "\n")

	return b.String()
}

// renderRow renders one job line.
func (m watchModel) renderRow(entry api.IngestionStatus) string {
	title := entry.Title
	if title == "" {
		title = entry.PaperID
	}
	title = truncate(title, 40)

	switch entry.State {
	case api.StateCompleted:
		tag := m.theme.completedStyle().Render("✓ completed")
		chunks := ""
		if entry.ChunkCount > 0 {
			chunks = fmt.Sprintf("  %d chunks", entry.ChunkCount)
		}
		return fmt.Sprintf("%s  %s%s\n", tag, title, chunks)

	case api.StateFailed:
		tag := m.theme.errorStyle().Render("✗ failed")
		reason := ""
		if entry.Error != "" {
			reason = "  " + entry.Error
		}
		return fmt.Sprintf("%s  %s%s\n", tag, title, reason)

	default:
		tag := m.theme.statusStyle().Render(fmt.Sprintf("[%-11s]", entry.State))
		bar := m.progress.ViewAs(float64(entry.Progress) / 100)
		step := ""
		if entry.Step != "" {
			step = "  " + entry.Step
		}
		return fmt.Sprintf("%s %s %3d%%%s  %s\n", tag, bar, entry.Progress, step, title)
	}
}

// waitForUpdate blocks on the store's update channel in a command goroutine.
func (m watchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updates
		if !ok {
			return storeClosedMsg{}
		}
		return statusMsg(update)
	}
}

// watchTickCmd returns a command that repaints once per second.
func watchTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	store := status.NewStore(appLogger)
	defer store.Close()

	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	resolver := status.NewResolver(apiClient, store, appLogger)

	push := status.NewPushChannel(apiClient, store, appLogger)
	push.SetCollector(collector)
	push.Connect()
	defer push.Close()

	poll := status.NewPollChannel(apiClient, store, resolver, appLogger)
	poll.Start()
	defer poll.Close()

	p := tea.NewProgram(newWatchModel(store, updates))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	return nil
}
