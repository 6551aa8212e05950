package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/scout-sh/scoutbin/internal/installer"
	"github.com/scout-sh/scoutbin/internal/manager"
)

type progressMsg installer.Progress

type doneMsg struct {
	path string
	err  error
}

// downloadModel renders a single download progress bar fed by the
// installer's progress callback.
type downloadModel struct {
	bar     progress.Model
	percent float64
	done    bool
	result  doneMsg
}

func newDownloadModel() downloadModel {
	return downloadModel{
		bar: progress.New(progress.WithDefaultGradient()),
	}
}

func (m downloadModel) Init() tea.Cmd {
	return nil
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.percent = msg.Percent / 100
		return m, nil
	case doneMsg:
		m.done = true
		m.result = msg
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 8
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m downloadModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("\n  %s %.0f%%\n", m.bar.ViewAs(m.percent), m.percent*100)
}

// installWithProgress runs an install/refresh operation while a
// bubbletea program renders its download progress.
func installWithProgress(ctx context.Context, opts manager.Options, op func(context.Context, manager.Options) (string, error)) (string, error) {
	prog := tea.NewProgram(newDownloadModel())

	opts.OnProgress = func(p installer.Progress) {
		prog.Send(progressMsg(p))
	}

	go func() {
		path, err := op(ctx, opts)
		prog.Send(doneMsg{path: path, err: err})
	}()

	final, err := prog.Run()
	if err != nil {
		return "", err
	}
	result := final.(downloadModel).result
	return result.path, result.err
}
