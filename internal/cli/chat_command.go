package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"igait-client/internal/assistant"
)

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the iGait assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}

			session, err := assistant.Connect(cmd.Context(), assistant.Config{
				URL:          a.cfg.AssistantURL,
				PingInterval: a.cfg.AssistantPingInterval,
				PongTimeout:  a.cfg.AssistantPongTimeout,
			}, a.auth, a.logger)
			if err != nil {
				return err
			}
			defer session.Close()

			fmt.Println("Connected. Type a message, or /quit to leave.")

			go renderIncoming(session)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/quit" || line == "/exit" {
					return nil
				}
				if err := session.Send(line); err != nil {
					return err
				}
			}
		},
	}
}

func renderIncoming(session *assistant.Session) {
	for {
		select {
		case msg, ok := <-session.Messages():
			if !ok {
				return
			}
			printAssistantMessage(msg)
		case err := <-session.Errors():
			color.Red("\n%v", err)
			return
		}
	}
}

func printAssistantMessage(msg assistant.Message) {
	switch msg.Type {
	case assistant.TypeError:
		color.Red("\rassistant: %s", msg.Content)
	case assistant.TypeTyping, assistant.TypeWaiting:
		// Transient presence frames; nothing worth printing in a terminal.
		return
	case assistant.TypeYou:
		color.Cyan("\ryou: %s", msg.Content)
	case assistant.TypeJobs:
		fmt.Print("\r")
		printJobsTable(msg.Jobs)
	case assistant.TypeInfo:
		color.Yellow("\r%s", msg.Content)
	default:
		fmt.Printf("\rassistant: %s\n", msg.Content)
	}
	fmt.Print("> ")
}
