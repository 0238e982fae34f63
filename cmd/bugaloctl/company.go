package main

import (
	"errors"
	"fmt"
	"strings"

	"bugalou/internal/models"

	"github.com/spf13/cobra"
)

func createCompanyCmd() *cobra.Command {
	var name, slug string

	cmd := &cobra.Command{
		Use:   "create-company",
		Short: "Create a company and print its API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("--name is required")
			}
			store, _, err := openStore()
			if err != nil {
				return err
			}

			company := &models.Company{Name: name}
			if err := store.CreateCompany(cmd.Context(), company); err != nil {
				return fmt.Errorf("create company: %w", err)
			}
			if slug != "" {
				if err := store.SetSlug(cmd.Context(), company.ID, strings.ToLower(slug)); err != nil {
					return fmt.Errorf("set slug: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Company: %s\n", company.ID)
			fmt.Fprintf(out, "API key: %s\n", company.APIKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "company name")
	cmd.Flags().StringVar(&slug, "slug", "", "optional public slug")
	return cmd
}
