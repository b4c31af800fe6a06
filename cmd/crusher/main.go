package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crusher/internal/config"
	"crusher/internal/contacts"
	"crusher/internal/inbox"
	"crusher/internal/people"
	"crusher/internal/send"
	"crusher/internal/server"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"

	jsonOutput bool
)

func main() {
	// .env is optional; it mirrors the config file for ad hoc overrides.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "crusher",
		Short: "Batch-process your unread iMessage threads",
		Long: `Crusher reads unread conversations straight out of chat.db,
resolves sender names from your contacts and a local override file,
and lets you triage and answer everything in one pass.`,
	}
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{"version": version, "commit": commit, "date": buildDate})
				return
			}
			fmt.Printf("crusher %s (%s, %s)\n", version, commit, buildDate)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List unread conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, _, err := buildService()
			if err != nil {
				return err
			}
			convs, err := svc.Assemble(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				type listEntry struct {
					Name         string `json:"name"`
					Identifier   string `json:"identifier"`
					UnreadCount  int    `json:"unread_count"`
					LastActivity string `json:"last_activity"`
					Messages     int    `json:"messages"`
				}
				out := make([]listEntry, 0, len(convs))
				for _, c := range convs {
					out = append(out, listEntry{
						Name:         c.Name(svc.ResolveIdentity),
						Identifier:   c.ChatIdentifier,
						UnreadCount:  c.UnreadCount,
						LastActivity: c.LastMessageDate.Format("2006-01-02 15:04"),
						Messages:     len(c.Messages),
					})
				}
				printJSON(out)
				return nil
			}
			if len(convs) == 0 {
				fmt.Println("No unread conversations.")
				return nil
			}
			for _, c := range convs {
				fmt.Printf("%-30s  %2d unread  %s\n",
					c.Name(svc.ResolveIdentity), c.UnreadCount,
					c.LastMessageDate.Format("2006-01-02 15:04"))
				for _, m := range c.Messages {
					prefix := "  <"
					if m.IsFromMe {
						prefix = "  >"
					}
					text := m.DisplayText()
					if text == "" && m.IsMediaOnly() {
						text = "[image]"
					}
					if m.Sender != "" {
						text = m.Sender + ": " + text
					}
					if r := m.ReactionSummary(); r != "" {
						text += " " + r
					}
					fmt.Printf("%s %s\n", prefix, text)
				}
			}
			return nil
		},
	})

	var sendGroup bool
	sendCmd := &cobra.Command{
		Use:   "send <identifier> <text>...",
		Short: "Send a message and mark the chat read",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, _, err := buildService()
			if err != nil {
				return err
			}
			return svc.Send(cmd.Context(), args[0], strings.Join(args[1:], " "), sendGroup)
		},
	}
	sendCmd.Flags().BoolVar(&sendGroup, "group", false, "Treat the identifier as a group chat id")
	rootCmd.AddCommand(sendCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "mark-read <identifier>",
		Short: "Mark every unread message in a chat as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, _, err := buildService()
			if err != nil {
				return err
			}
			n, err := svc.MarkRead(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]int64{"marked": n})
			} else {
				fmt.Printf("Marked %d messages read.\n", n)
			}
			return nil
		},
	})

	var port int
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the triage UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, ppl, err := buildService()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Port = port
			}
			if cfg.WatchPeople {
				go func() {
					if err := ppl.Watch(cmd.Context()); err != nil {
						slog.Warn("people watcher stopped", "error", err)
					}
				}()
			}
			srv := server.New(svc, ppl, cfg.AttachmentsDir, cfg.GridWidth)
			return srv.ListenAndServe(cfg.Port)
		},
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildService wires the long-lived pieces: config, override store, contact
// resolver, sender, engine.
func buildService() (*config.Config, *inbox.Service, *people.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	setupLogging(cfg)

	peoplePath, err := config.PeoplePath()
	if err != nil {
		return nil, nil, nil, err
	}
	ppl := people.NewStore(peoplePath)
	resolver := contacts.NewResolver(ppl, contacts.AddressBookDirectory{SourcesDir: cfg.AddressBookDir})
	svc := inbox.New(cfg.ChatDBPath, resolver, send.NewAppleScript())
	return cfg, svc, ppl, nil
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
