package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tarun-kavipurapu/msgcenter/client"
	"tarun-kavipurapu/msgcenter/pkg/discovery"
	"tarun-kavipurapu/msgcenter/pkg/logger"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"
)

var (
	serverAddr        string
	burstCount        int
	burstPrefix       string
	discover          bool
	waitEcho          time.Duration
	clientInteractive bool
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Connect to a server and send framed messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("server") {
			cfg.ServerAddr = serverAddr
		}
		if discover {
			addr, err := discoverServer()
			if err != nil {
				return err
			}
			cfg.ServerAddr = addr
		}

		c := client.NewClient(cfg.ServerAddr, cfg.CenterOptions()...)
		if err := c.Connect(); err != nil {
			return err
		}
		defer c.Close()

		if clientInteractive {
			fmt.Println("Msgcenter Client Interactive Shell")
			fmt.Println("Type 'help' for commands.")

			prompt.New(
				func(in string) { clientExecutor(in, c) },
				clientCompleter,
				prompt.OptionPrefix("client> "),
				prompt.OptionTitle("Msgcenter Client"),
			).Run()
			return nil
		}

		if _, err := c.SendBurst(burstPrefix, burstCount); err != nil {
			return err
		}
		if waitEcho > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), waitEcho)
			defer cancel()
			echoes, err := c.WaitEchoes(ctx, burstCount)
			if err != nil {
				return err
			}
			logger.Sugar.Infof("[Client] Received %d echoes", len(echoes))
		}
		return nil
	},
}

func discoverServer() (string, error) {
	resolver, err := discovery.NewResolver()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	addr, err := resolver.FindFirst(ctx)
	if err != nil {
		return "", fmt.Errorf("discover server: %w", err)
	}
	logger.Sugar.Infof("[Client] Discovered server at %s", addr)
	return addr, nil
}

func clientExecutor(in string, c *client.Client) {
	in = strings.TrimSpace(in)
	blocks := strings.Fields(in)
	if len(blocks) == 0 {
		return
	}

	switch blocks[0] {
	case "exit", "quit":
		fmt.Println("Closing client...")
		c.Close()
		os.Exit(0)
	case "status":
		fmt.Println(c.GetStatus())
	case "send":
		if len(blocks) < 2 {
			fmt.Println("Usage: send <text>")
			return
		}
		text := strings.TrimSpace(strings.TrimPrefix(in, blocks[0]))
		if err := c.Send([]byte(text)); err != nil {
			fmt.Printf("Error sending: %v\n", err)
		}
	case "burst":
		if len(blocks) < 2 {
			fmt.Println("Usage: burst <count> [prefix]")
			return
		}
		n, err := strconv.Atoi(blocks[1])
		if err != nil || n < 0 {
			fmt.Println("count must be a non-negative integer")
			return
		}
		prefix := client.DefaultPrefix
		if len(blocks) > 2 {
			prefix = blocks[2]
		}
		total, err := c.SendBurst(prefix, n)
		if err != nil {
			fmt.Printf("Error sending burst: %v\n", err)
			return
		}
		fmt.Printf("Sent %d frames (%d payload bytes).\n", n, total)
	case "help":
		fmt.Println("Available commands:")
		fmt.Println("  status                 - Show client status")
		fmt.Println("  send <text>            - Send one framed message")
		fmt.Println("  burst <count> [prefix] - Send count messages prefix+i")
		fmt.Println("  exit                   - Close connection and exit")
	default:
		fmt.Println("Unknown command: " + blocks[0])
	}
}

func clientCompleter(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "status", Description: "Show client status"},
		{Text: "send", Description: "Send one message"},
		{Text: "burst", Description: "Send a burst of messages"},
		{Text: "exit", Description: "Exit the client"},
		{Text: "help", Description: "Show help"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.Flags().StringVarP(&serverAddr, "server", "s", "127.0.0.1:8888", "Address of the server")
	clientCmd.Flags().IntVarP(&burstCount, "count", "n", 30000, "Number of messages to send")
	clientCmd.Flags().StringVarP(&burstPrefix, "prefix", "p", client.DefaultPrefix, "Payload prefix; the message index is appended")
	clientCmd.Flags().BoolVarP(&discover, "discover", "d", false, "Find the server over mDNS instead of --server")
	clientCmd.Flags().DurationVarP(&waitEcho, "wait-echo", "w", 0, "Wait up to this long for the server to echo every message")
	clientCmd.Flags().BoolVarP(&clientInteractive, "interactive", "i", false, "Start in interactive mode")
}
