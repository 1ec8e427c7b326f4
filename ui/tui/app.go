package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"hostwatch/internal/engine"
	"hostwatch/internal/output"
	"hostwatch/ui/tui/state"
	"hostwatch/ui/tui/views"
)

// FrameSource hands out engine frames. The channel keeps only the newest
// frame and is closed when the engine stops.
type FrameSource interface {
	Subscribe() (<-chan engine.Frame, func())
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	frames      <-chan engine.Frame
	unsubscribe func()

	state       state.AppState
	spinner     spinner.Model
	progress    progress.Model
	menuCursor  int
	animCursor  float64
	velocity    float64 // Physics velocity
	spring      harmonica.Spring
	termScrollY int
	logRevision uint64
	mouseX      int
	mouseY      int
	quitting    bool
	width       int
	height      int
}

// Messages
type TickMsg time.Time
type AnimateMsg time.Time
type FrameMsg engine.Frame
type EngineStoppedMsg struct{}

func InitialModel(source FrameSource) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	// Initialize physics spring for smooth cursor animation
	// Increased frequency (12.0) for faster response and damping (0.9) to prevent overshoot
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	frames, unsubscribe := source.Subscribe()

	return MainModel{
		frames:      frames,
		unsubscribe: unsubscribe,
		spinner:     s,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spring:      spring,
		state: state.AppState{
			CurrentPage: state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
		animateCmd(),
		waitForFrame(m.frames),
	)
}

// Commands
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second*1, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func waitForFrame(frames <-chan engine.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return EngineStoppedMsg{}
		}
		return FrameMsg(f)
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case TickMsg:
		m.state.Now = time.Time(msg)
		return m, tickCmd()

	case FrameMsg:
		return m.handleFrameMsg(msg)

	case EngineStoppedMsg:
		m.state.Err = engine.ErrStopped
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		switch msg.String() {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case "enter":
			m.navigateTo(m.menuCursor)
		}
		return m, nil

	case state.PageTerminal:
		switch msg.String() {
		case "up", "k":
			if m.termScrollY > 0 {
				m.termScrollY--
			}
		case "down", "j":
			if m.termScrollY < m.bottomScroll() {
				m.termScrollY++
			}
		}

	case state.PageHost:
		switch msg.String() {
		case "left", "h":
			if m.state.SelectedHost > 0 {
				m.state.SelectedHost--
			}
		case "right", "l":
			if m.state.SelectedHost < len(m.state.View.Sections)-1 {
				m.state.SelectedHost++
			}
		}
	}

	if msg.String() == "b" || msg.String() == "esc" || msg.String() == "backspace" {
		m.state.CurrentPage = state.PageMenu
		return m, nil
	}

	return m, nil
}

func (m *MainModel) navigateTo(cursor int) {
	switch cursor {
	case 0:
		m.state.CurrentPage = state.PageDashboard
	case 1:
		m.state.CurrentPage = state.PageTerminal
		m.termScrollY = m.bottomScroll()
	case 2:
		m.state.CurrentPage = state.PageHost
	}
}

// bottomScroll is the scroll offset that shows the newest feed line last.
func (m *MainModel) bottomScroll() int {
	return views.ClampScroll(len(m.state.View.Feed), len(m.state.View.Feed), views.TerminalRows(m.height))
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	var v float64 = m.velocity
	m.animCursor, v = m.spring.Update(m.animCursor, float64(m.menuCursor), v)
	m.velocity = v
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.termScrollY = views.ClampScroll(m.termScrollY, len(m.state.View.Feed), views.TerminalRows(m.height))
	return m, nil
}

func (m *MainModel) handleFrameMsg(msg FrameMsg) (tea.Model, tea.Cmd) {
	view := output.BuildDashboard(engine.Frame(msg))
	m.state.View = view
	m.state.LastUpdate = view.Now
	m.state.Err = nil

	if n := len(view.Sections); m.state.SelectedHost >= n {
		m.state.SelectedHost = max(n-1, 0)
	}

	// Follow the newest log line whenever the feed changes
	if view.LogRevision != m.logRevision {
		m.logRevision = view.LogRevision
		m.termScrollY = m.bottomScroll()
	}
	return m, waitForFrame(m.frames)
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		for i := range views.MenuOptions {
			if zone.Get(fmt.Sprintf("menu_%d", i)).InBounds(msg) {
				m.menuCursor = i
				m.navigateTo(i)
				return m, nil
			}
		}
	case state.PageDashboard:
		for i := range m.state.View.Sections {
			if zone.Get(fmt.Sprintf("host_%d", i)).InBounds(msg) {
				m.state.SelectedHost = i
				m.state.CurrentPage = state.PageHost
				return m, nil
			}
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	props := views.ViewProps{
		Width:       m.width,
		Height:      m.height,
		MouseX:      m.mouseX,
		MouseY:      m.mouseY,
		SpinnerView: m.spinner.View(),
		Progress:    m.progress,
	}

	var page string
	switch m.state.CurrentPage {
	case state.PageMenu:
		page = views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY)
	case state.PageDashboard:
		page = views.RenderDashboard(m.state, props)
	case state.PageTerminal:
		page = views.RenderTerminal(m.state, m.width, m.height, m.termScrollY)
	case state.PageHost:
		page = views.RenderHost(m.state, props)
	}

	if m.state.Err != nil {
		page = lipgloss.JoinVertical(lipgloss.Left, page,
			views.ColorForStatus("CRIT").PaddingLeft(2).Render("Error: "+m.state.Err.Error()))
	}
	return page
}

func Start(source FrameSource) error {
	m := InitialModel(source)
	defer m.unsubscribe()

	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
