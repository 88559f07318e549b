package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Avicted/aicall/internal/config"
)

type programRunner interface {
	Run() (tea.Model, error)
}

type programFactory func(tea.Model, ...tea.ProgramOption) programRunner

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, newProgram programFactory) error {
	fs := flag.NewFlagSet("aicall", flag.ContinueOnError)
	fs.SetOutput(stderr)
	defaultAddr := config.DefaultIPCAddr()
	if v := os.Getenv("AICALL_IPC_ADDR"); v != "" {
		defaultAddr = v
	}
	ipcAddr := fs.String("ipc", defaultAddr, "call daemon ipc address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*ipcAddr) == "" {
		return fmt.Errorf("ipc address is required")
	}

	client := newDaemonIPC(*ipcAddr)
	defer client.close()
	m := newCallModel(client)

	if newProgram == nil {
		newProgram = func(model tea.Model, options ...tea.ProgramOption) programRunner {
			return tea.NewProgram(model, options...)
		}
	}

	p := newProgram(m, tea.WithAltScreen(), tea.WithInput(stdin), tea.WithOutput(stdout))
	_, err := p.Run()
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
