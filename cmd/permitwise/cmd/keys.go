package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/permitwise/permitwise/internal/core/auth"
	"github.com/permitwise/permitwise/internal/core/config"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate an API key for a caller",
	Long: `Generates an API key signed with the first configured HMAC secret and
stores only its hash. The key itself is printed once and cannot be
recovered.`,
	RunE: runKeysNew,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <api_key_id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var keysCaller string

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysNewCmd)
	keysCmd.AddCommand(keysRevokeCmd)
	keysNewCmd.Flags().StringVar(&keysCaller, "caller", "", "caller ID the key resolves to (required)")
	keysNewCmd.MarkFlagRequired("caller")
}

func runKeysNew(cmd *cobra.Command, args []string) error {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set PW_HMAC_SECRET environment variable)")
	}

	// Any configured secret works; keys name the secret that signed them.
	var secretID string
	var secret []byte
	for id, s := range secrets {
		secretID, secret = id, s
		break
	}

	randomData := make([]byte, 32)
	if _, err := rand.Read(randomData); err != nil {
		return fmt.Errorf("failed to generate key material: %w", err)
	}

	apiKey := auth.FormatAPIKey(secretID, hex.EncodeToString(randomData))
	keyHash := auth.ComputeHMAC(secret, apiKey)
	apiKeyID := uuid.Must(uuid.NewV7()).String()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := queries.Exec(cmd.Context(), "insert-api-key", apiKeyID, keysCaller, keyHash, now); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	fmt.Printf("api_key_id: %s\ncaller:     %s\nkey:        %s\n", apiKeyID, keysCaller, apiKey)
	fmt.Println("store this key now; it is not recoverable")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := queries.Exec(cmd.Context(), "revoke-api-key", now, args[0])
	if err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no key with id %s", args[0])
	}
	fmt.Println("key revoked")
	return nil
}
