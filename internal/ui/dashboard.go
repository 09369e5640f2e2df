package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	tea "github.com/charmbracelet/bubbletea"
)

// StateMsg carries a new engine state into the dashboard.
type StateMsg earn.State

type spinMsg struct{}

type refreshDoneMsg struct{ err error }

// DashboardModel renders live engine state. It never talks to the chain
// itself: state arrives as StateMsg and refreshes go through refresh.
type DashboardModel struct {
	state       earn.State
	network     string
	refresh     func(context.Context) error
	refreshing  bool
	refreshErr  string
	frame       int
	lastChanged time.Time
	quitting    bool
	now         func() time.Time
}

// NewDashboardModel builds the model. refresh may be nil.
func NewDashboardModel(network string, initial earn.State, refresh func(context.Context) error) DashboardModel {
	return DashboardModel{
		state:   initial,
		network: network,
		refresh: refresh,
		now:     time.Now,
	}
}

// RunDashboard starts the TUI and forwards every engine change into it
// until the user quits.
func RunDashboard(network string, e *earn.Engine) error {
	p := tea.NewProgram(NewDashboardModel(network, e.State(), e.Refresh), tea.WithAltScreen())
	// Send blocks until the program loop runs; observers must not.
	unsub := e.Subscribe(func(s earn.State) { go p.Send(StateMsg(s)) })
	defer unsub()
	_, err := p.Run()
	return err
}

func (m DashboardModel) Init() tea.Cmd { return spin() }

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.refresh == nil || m.refreshing {
				return m, nil
			}
			m.refreshing, m.refreshErr = true, ""
			refresh := m.refresh
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return refreshDoneMsg{err: refresh(ctx)}
			}
		}

	case StateMsg:
		if msg.Version < m.state.Version {
			return m, nil // overtaken by a newer state
		}
		m.state = earn.State(msg)
		m.lastChanged = m.now()

	case refreshDoneMsg:
		m.refreshing = false
		if msg.err != nil {
			m.refreshErr = msg.err.Error()
		}

	case spinMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, spin()
	}
	return m, nil
}

func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}
	s := m.state

	var sb strings.Builder
	sb.WriteString(Banner() + "\n\n")

	switch {
	case !s.Session.Connected:
		sb.WriteString(Warn("wallet not connected") + "\n")
	default:
		sb.WriteString(fmt.Sprintf("%s  %s  %s\n",
			Addr(TruncateAddr(s.Session.Account.Hex())),
			Network(m.network),
			Meta(fmt.Sprintf("chain %d", s.Session.ChainID))))
	}
	sb.WriteString("\n")

	if s.Loaded() {
		sb.WriteString(KeyValueBlock("Balances", [][2]string{
			{"Deposited", s.DepositDisplay() + " USDC"},
			{"Wallet", s.WalletDisplay() + " USDC"},
			{"APR", s.APRPercent() + "%"},
			{"Updated", s.Snapshot.FetchedAt.Format("15:04:05")},
		}))
	} else if s.Session.Connected {
		sb.WriteString(Meta("Loading balances…"))
	}
	sb.WriteString("\n\n")

	if s.Busy() {
		sb.WriteString(StyleWarning.Render(spinnerFrames[m.frame]+" "+s.Pending.String()) + "\n")
	}
	if m.refreshing {
		sb.WriteString(Meta(spinnerFrames[m.frame]+" refreshing") + "\n")
	}
	if s.LastErr != nil {
		sb.WriteString(Err(s.LastErr.Message()) + "\n")
	}
	if m.refreshErr != "" && (s.LastErr == nil || s.LastErr.Error() != m.refreshErr) {
		sb.WriteString(Err(m.refreshErr) + "\n")
	}

	sb.WriteString("\n" + Meta("[ r ] refresh   [ q ] quit") + "\n")
	return sb.String()
}

func spin() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return spinMsg{} })
}
