package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"bugalou/internal/automation"
	"bugalou/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"
)

func backfillDefinitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-definitions",
		Short: "Give template-only flows an explicit trigger and WhatsApp block",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			_, err = backfillDefinitions(cmd.Context(), store, cmd.OutOrStdout())
			return err
		},
	}
}

// backfillDefinitions rewrites flows without a definition into the
// equivalent trigger -> whatsapp definition. A flow that fails is reported
// and skipped.
func backfillDefinitions(ctx context.Context, store *database.Store, out io.Writer) (int, error) {
	flows, err := store.FlowsWithoutDefinition(ctx)
	if err != nil {
		return 0, fmt.Errorf("load flows: %w", err)
	}

	converted := 0
	for _, flow := range flows {
		def := automation.LegacyDefinition(flow.TriggerEventType, flow.MessageTemplate)
		encoded, err := json.Marshal(def)
		if err != nil {
			fmt.Fprintf(out, "Error encoding flow %s: %v\n", flow.ID, err)
			continue
		}
		if err := store.SetFlowDefinition(ctx, flow.ID, datatypes.JSON(encoded)); err != nil {
			fmt.Fprintf(out, "Error updating flow %s: %v\n", flow.ID, err)
			continue
		}
		converted++
		fmt.Fprintf(out, "Converted flow %s (%s)\n", flow.ID, flow.Name)
	}

	fmt.Fprintf(out, "Done: %d of %d flows converted\n", converted, len(flows))
	return converted, nil
}
