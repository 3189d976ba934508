package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/permitwise/permitwise/internal/rules"
	"github.com/permitwise/permitwise/internal/store"
	"github.com/permitwise/permitwise/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage authored rule sets",
}

var rulesLoadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Load jurisdictions and rule sets from a JSON file",
	Long: `Loads a rules document into the database, activating each rule set for
its (jurisdiction, category) pair. Every rule is dry-run evaluated first so
misconfigured operators or combinators are rejected before activation.`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesLoad,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLoadCmd)
}

// rulesDocument is the on-disk authoring format.
type rulesDocument struct {
	Jurisdictions []types.Jurisdiction `json:"jurisdictions"`
	RuleSets      []types.RuleSet      `json:"ruleSets"`
}

func runRulesLoad(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}
	var doc rulesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse rules file: %w", err)
	}

	// Dry-run evaluation catches configuration errors (unknown operators,
	// invalid combinators, missing fields) before anything is written.
	for _, set := range doc.RuleSets {
		if _, err := rules.EvaluateAll(&set, types.InputSet{}); err != nil {
			return fmt.Errorf("rule set %s/%s: %w", set.Jurisdiction, set.Category, err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	sqlStore := store.NewSQLStore(queries)

	ctx := cmd.Context()
	for _, j := range doc.Jurisdictions {
		if err := sqlStore.SaveJurisdiction(ctx, j); err != nil {
			return fmt.Errorf("failed to save jurisdiction %s: %w", j.Name, err)
		}
	}
	for _, set := range doc.RuleSets {
		if err := sqlStore.ActivateRuleSet(ctx, set); err != nil {
			return fmt.Errorf("failed to activate rule set %s/%s: %w", set.Jurisdiction, set.Category, err)
		}
		fmt.Printf("activated %s/%s v%d (%d rules)\n", set.Jurisdiction, set.Category, set.Version, len(set.Rules))
	}
	return nil
}
