package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantCreateCmd)
}

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenant namespaces",
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create <tenant-id>",
	Short: "Provision a tenant namespace",
	Long: `Provision the isolated namespace for a tenant. The operation is
idempotent, creating an existing tenant succeeds without changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().CreateTenant(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Tenant %s provisioned\n", args[0])
		return nil
	},
}
