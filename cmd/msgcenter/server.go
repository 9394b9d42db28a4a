package main

import (
	"fmt"
	"os"
	"strings"

	"tarun-kavipurapu/msgcenter/pkg/logger"
	"tarun-kavipurapu/msgcenter/server"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"
)

var (
	listenAddr  string
	echo        bool
	advertise   bool
	interactive bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the message server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.ListenAddr = listenAddr
		}
		if cmd.Flags().Changed("echo") {
			cfg.Echo = echo
		}
		if cmd.Flags().Changed("advertise") {
			cfg.Discovery = advertise
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Sugar.Infof("Starting msgcenter server on %s", cfg.ListenAddr)
		srv := server.NewServer(cfg)

		if !interactive {
			return srv.Start()
		}

		go func() {
			if err := srv.Start(); err != nil {
				logger.Sugar.Error("Error starting server ", err)
				os.Exit(1)
			}
		}()
		<-srv.Ready()

		fmt.Println("Msgcenter Server Interactive Shell")
		fmt.Println("Type 'help' for commands.")

		prompt.New(
			func(in string) { serverExecutor(in, srv) },
			serverCompleter,
			prompt.OptionPrefix("msgcenter> "),
			prompt.OptionTitle("Msgcenter Server"),
		).Run()
		return nil
	},
}

func serverExecutor(in string, srv *server.Server) {
	in = strings.TrimSpace(in)
	blocks := strings.Fields(in)
	if len(blocks) == 0 {
		return
	}

	switch blocks[0] {
	case "exit", "quit":
		fmt.Println("Stopping server...")
		if err := srv.Stop(); err != nil {
			fmt.Printf("Error stopping server: %v\n", err)
		}
		os.Exit(0)
	case "status":
		fmt.Println(srv.GetStatus())
	case "list":
		if len(blocks) > 1 && blocks[1] == "conns" {
			conns := srv.GetConnList()
			if len(conns) == 0 {
				fmt.Println("No clients connected.")
			} else {
				fmt.Println("Connected Clients:")
				for _, c := range conns {
					fmt.Println("- " + c)
				}
			}
		} else {
			fmt.Println("Usage: list conns")
		}
	case "help":
		fmt.Println("Available commands:")
		fmt.Println("  status       - Show server status")
		fmt.Println("  list conns   - List connected clients")
		fmt.Println("  exit         - Stop server and exit")
	default:
		fmt.Println("Unknown command: " + blocks[0])
	}
}

func serverCompleter(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "status", Description: "Show server status and stats"},
		{Text: "list conns", Description: "List all connected clients"},
		{Text: "exit", Description: "Exit the server"},
		{Text: "help", Description: "Show help"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&listenAddr, "addr", "a", "127.0.0.1:8888", "Address to listen on")
	serverCmd.Flags().BoolVarP(&echo, "echo", "e", false, "Send every decoded payload back to its sender")
	serverCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the server over mDNS")
	serverCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start in interactive mode")
}
