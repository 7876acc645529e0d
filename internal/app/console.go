package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/logging"
	"github.com/relabs-tech/pubmarine/internal/orientation"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

const maxConsoleFaults = 5

// vehicleMsg carries a decoded command from the link into the UI.
type vehicleMsg struct{ cmd protocol.Command }

type sentMsg struct {
	line string
	err  error
}

// consoleModel is an operator terminal: a line editor for raw protocol
// commands plus a live view of the vehicle's telemetry and errors.
type consoleModel struct {
	send   func(protocol.Command) error
	input  []rune
	state  *protocol.State
	faults []string
	status string
}

func newConsoleModel(send func(protocol.Command) error) consoleModel {
	return consoleModel{send: send, status: "type a command, enter sends; ctrl+s STOP, ctrl+r RESET, ctrl+c quits"}
}

func (m consoleModel) Init() tea.Cmd { return nil }

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case vehicleMsg:
		switch c := msg.cmd.(type) {
		case protocol.State:
			m.state = &c
		case protocol.Fault:
			m.faults = append(m.faults, c.Reason)
			if len(m.faults) > maxConsoleFaults {
				m.faults = m.faults[len(m.faults)-maxConsoleFaults:]
			}
		}
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.line, msg.err)
		} else {
			m.status = "sent " + msg.line
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlS:
			return m, m.sendCmd(protocol.Stop{})
		case tea.KeyCtrlR:
			return m, m.sendCmd(protocol.Reset{})
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeySpace:
			m.input = append(m.input, ' ')
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
		case tea.KeyEnter:
			line := strings.TrimSpace(string(m.input))
			m.input = nil
			if line == "" {
				return m, nil
			}
			cmd, err := protocol.Decode(line)
			if err != nil {
				m.status = fmt.Sprintf("%s: %v", line, err)
				return m, nil
			}
			return m, m.sendCmd(cmd)
		}
	}
	return m, nil
}

func (m consoleModel) sendCmd(cmd protocol.Command) tea.Cmd {
	send := m.send
	return func() tea.Msg {
		return sentMsg{line: protocol.Encode(cmd), err: send(cmd)}
	}
}

func (m consoleModel) View() string {
	var b strings.Builder
	b.WriteString("pubmarine console\n\n")
	if m.state == nil {
		b.WriteString("  waiting for telemetry...\n")
	} else {
		b.WriteString(formatState(*m.state))
	}
	b.WriteString("\n")
	for _, f := range m.faults {
		fmt.Fprintf(&b, "  ERR %s\n", f)
	}
	fmt.Fprintf(&b, "\n> %s_\n\n%s\n", string(m.input), m.status)
	return b.String()
}

func formatState(st protocol.State) string {
	var b strings.Builder
	b.WriteString("  throttle")
	for _, c := range protocol.Channels(protocol.KindMotor) {
		if v, ok := st.Throttle[c]; ok {
			fmt.Fprintf(&b, "  %s=%+.2f", c, v)
		}
	}
	b.WriteString("\n  servos  ")
	for i, a := range st.Servos {
		fmt.Fprintf(&b, "  SV%d=%3d", i+1, a)
	}
	b.WriteString("\n  jets    ")
	for i, c := range protocol.Channels(protocol.KindJet) {
		mark := "."
		if st.Jets[i] {
			mark = "#"
		}
		fmt.Fprintf(&b, "  %s%s", c, mark)
	}
	fmt.Fprintf(&b, "\n  acc  %6.2f %6.2f %6.2f   gyro %6.2f %6.2f %6.2f\n",
		st.Acc[0], st.Acc[1], st.Acc[2], st.Gyro[0], st.Gyro[1], st.Gyro[2])
	pose := orientation.FromAccel(st.Acc)
	fmt.Fprintf(&b, "  roll %6.1f°  pitch %6.1f°\n", pose.Roll, pose.Pitch)
	fmt.Fprintf(&b, "  depth %.2f   battery %.2f V\n", st.Depth, st.Bat)
	return b.String()
}

// RunConsole drives the vehicle from a terminal over the host's serial
// link, or the simulator.
func RunConsole() error {
	cfg := config.Get()

	logPath := filepath.Join(os.TempDir(), "pubmarine-console.log")
	if f, err := logging.RedirectToFile(logPath); err == nil {
		defer f.Close()
	}

	link, err := openLink(cfg.Host, cfg.Servo.Center, logging.Component("bridge"))
	if err != nil {
		return err
	}
	defer link.Close()

	cmd := &commander{link: link}
	p := tea.NewProgram(newConsoleModel(cmd.Send), tea.WithAltScreen())
	link.OnCommand(func(c protocol.Command) { p.Send(vehicleMsg{cmd: c}) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Run(ctx)

	_, err = p.Run()
	return err
}
