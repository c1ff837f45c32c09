package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/service"
)

var (
	askThread      string
	askJSON        bool
	askInteractive bool
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send a message to the assistant and print the streamed events",
	Long: `Runs one turn against an in-process assistant. With --interactive, further
messages are read from stdin line by line on the same thread, which is how a
pending conflict prompt is answered.`,
	Example: `  researchctl ask "Research Stripe"
  researchctl ask -i "Tell me about Nvidia's CEO"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askThread, "thread", "t", "", "thread id (default: a new id)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print events as JSON lines")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "keep reading messages from stdin")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !askInteractive {
		return fmt.Errorf("a message is required unless --interactive is set")
	}

	rt, logger, err := runtimeFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	defer func() { _ = logger.Sync() }()

	thread := askThread
	if thread == "" {
		thread = uuid.NewString()
	}
	out := cmd.OutOrStdout()
	p := &eventPrinter{w: out, json: askJSON}

	turn := func(msg string) {
		for e := range rt.Orchestrator.Stream(cmd.Context(), service.Request{ThreadID: thread, Message: msg}) {
			p.print(e)
		}
	}

	if len(args) == 1 {
		turn(args[0])
	}
	if !askInteractive {
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "thread %s; empty line or Ctrl-D to quit\n", thread)
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.ErrOrStderr(), "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		msg := strings.TrimSpace(sc.Text())
		if msg == "" || cmd.Context().Err() != nil {
			return nil
		}
		turn(msg)
	}
}

// eventPrinter renders events for a terminal. Report chunks are written
// back to back so a chunked report reads as one document.
type eventPrinter struct {
	w         io.Writer
	json      bool
	openChunk bool
}

func (p *eventPrinter) print(e domain.Event) {
	if p.json {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintln(p.w, string(data))
		return
	}

	if e.Type != domain.EventReport && p.openChunk {
		fmt.Fprintln(p.w)
		p.openChunk = false
	}

	switch e.Type {
	case domain.EventStatus:
		fmt.Fprintf(p.w, "… %s\n", e.Text())
	case domain.EventWarning:
		fmt.Fprintf(p.w, "warning: %s\n", e.Text())
	case domain.EventError:
		fmt.Fprintf(p.w, "error: %s\n", e.Text())
	case domain.EventCitations:
		urls, _ := e.Content.([]string)
		for i, u := range urls {
			fmt.Fprintf(p.w, "  [%d] %s\n", i+1, u)
		}
	case domain.EventConflict:
		if c, ok := e.Content.(domain.ConflictContent); ok {
			fmt.Fprintf(p.w, "conflict (%s): %s\n", c.Status, c.Reason)
		}
	case domain.EventReport:
		fmt.Fprint(p.w, e.Text())
		p.openChunk = !strings.HasSuffix(e.Text(), "\n")
	case domain.EventText:
		fmt.Fprintln(p.w, e.Text())
	}
}
