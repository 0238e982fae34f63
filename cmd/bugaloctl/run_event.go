package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"bugalou/internal/automation"
	"bugalou/internal/database"
	"bugalou/internal/models"
	"bugalou/internal/whatsapp"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"
)

type eventArgs struct {
	companyID string
	eventType string
	phone     string
	name      string
	email     string
	payload   string
}

func runEventCmd() *cobra.Command {
	var args eventArgs

	cmd := &cobra.Command{
		Use:   "run-event",
		Short: "Ingest an event for a company and run its flows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore()
			if err != nil {
				return err
			}
			dispatcher := automation.NewDispatcher(whatsapp.NewCredentialStore(store, cfg), whatsapp.NewClient(cfg), store)
			engine := automation.NewEngine(store, store, dispatcher)
			return runEvent(cmd.Context(), store, engine, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&args.companyID, "company", "", "company id")
	cmd.Flags().StringVar(&args.eventType, "type", "", "event type")
	cmd.Flags().StringVar(&args.phone, "phone", "", "contact phone number")
	cmd.Flags().StringVar(&args.name, "name", "", "contact name")
	cmd.Flags().StringVar(&args.email, "email", "", "contact email")
	cmd.Flags().StringVar(&args.payload, "payload", "", "event payload as a JSON object")
	return cmd
}

// runEvent stores the event like the events API does and prints the run
// result as JSON.
func runEvent(ctx context.Context, store *database.Store, engine *automation.Engine, a eventArgs, out io.Writer) error {
	if a.companyID == "" || a.eventType == "" || a.phone == "" {
		return errors.New("--company, --type and --phone are required")
	}

	company, err := store.GetCompany(ctx, a.companyID)
	if err != nil {
		return err
	}
	if company == nil {
		return fmt.Errorf("company %s not found", a.companyID)
	}

	payload := map[string]any{}
	if a.payload != "" {
		if err := json.Unmarshal([]byte(a.payload), &payload); err != nil {
			return fmt.Errorf("--payload must be a JSON object: %w", err)
		}
	}

	in := database.ContactInput{Phone: a.phone}
	if a.name != "" {
		in.Name = &a.name
	}
	if a.email != "" {
		in.Email = &a.email
	}
	contact, err := store.UpsertContact(ctx, company.ID, in)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := &models.Event{CompanyID: company.ID, ContactID: &contact.ID, Type: a.eventType, Data: datatypes.JSON(data)}
	if err := store.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("store event: %w", err)
	}

	result, err := engine.RunFlowsForEvent(ctx, automation.EventInput{
		CompanyID: company.ID,
		EventType: a.eventType,
		Contact:   automation.ContactFromModel(contact),
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	if err := store.CompleteEvent(ctx, event.ID, result.TriggeredFlows, result.MessagesSent); err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"eventId":        event.ID,
		"contactId":      contact.ID,
		"triggeredFlows": result.TriggeredFlows,
		"messagesSent":   result.MessagesSent,
		"messages":       result.Messages,
	})
}
