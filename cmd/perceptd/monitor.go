package main

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/perceptd/internal/events"
	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/monitor"
)

var (
	monitorUser   string
	monitorBuffer int
)

func init() {
	monitorCmd.Flags().StringVar(&monitorUser, "user", "", "follow one speaker instead of everyone")
	monitorCmd.Flags().IntVar(&monitorBuffer, "buffer", 256, "events buffered before dropping")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of perception records published over NATS",
	Long: `Subscribe to the perception records a running server publishes and show
mood counts, a polarity sparkline, emotion shares and recent transcripts.

Requires events.nats_url (or PERCEPTD_EVENTS_NATS_URL).

Keys: q quit, c clear.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Events.NATSURL == "" {
		return errors.New("monitor needs events.nats_url")
	}

	nc, err := nats.Connect(cfg.Events.NATSURL,
		nats.Name("perceptd-monitor"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Events.NATSURL, err)
	}
	defer nc.Close()

	subject := events.AllSubject(cfg.Events.SubjectPrefix)
	if monitorUser != "" {
		subject = events.UserSubject(cfg.Events.SubjectPrefix, monitorUser)
	}
	// The dashboard owns the terminal, so nothing is logged.
	sub, err := events.Subscribe(nc, subject, monitorBuffer, logging.Nop())
	if err != nil {
		return err
	}
	defer sub.Close()

	model := monitor.NewModel(sub.Events(), monitor.Options{
		Subject:  subject,
		MoodBand: cfg.Affect.MoodNeutralBand,
	})
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
