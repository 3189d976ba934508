package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/permitwise/permitwise/internal/bridge"
	"github.com/permitwise/permitwise/internal/conversation"
	"github.com/permitwise/permitwise/internal/matcher"
	"github.com/permitwise/permitwise/internal/store"
	"github.com/permitwise/permitwise/internal/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation against the local database",
	Long:  `Starts a terminal conversation using the configured database and providers. Useful for exercising rule sets before exposing them over HTTP.`,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Console output reads better for an interactive session.
	cfg.Log.Format = "console"
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	sqlStore := store.NewSQLStore(queries)

	gateway, err := buildGateway(cfg, log)
	if err != nil {
		return err
	}

	orchestrator := conversation.New(
		sqlStore,
		sqlStore,
		matcher.New(gateway, log),
		bridge.New(sqlStore, log),
		log,
	)

	fmt.Println("PermitWise chat. Ask a question like \"can I own a pitbull in Denver?\" (ctrl-d to exit)")

	ctx := cmd.Context()
	var conversationID types.ConversationID
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp, err := orchestrator.Turn(ctx, conversationID, "chat", line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		conversationID = resp.ConversationID

		fmt.Println(resp.Text)
		for _, opt := range resp.Options {
			fmt.Println("  " + opt)
		}
		if resp.Type == types.TurnResult {
			fmt.Printf("outcome: %s\n", resp.Outcome)
			// Conversation is complete; the next message starts fresh.
			conversationID = ""
		}
	}
	return scanner.Err()
}
