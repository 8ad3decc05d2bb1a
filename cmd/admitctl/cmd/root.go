// Package cmd implements the admitctl CLI commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/northgrid/admitd/internal/version"
	"github.com/northgrid/admitd/pkg/clierror"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	outputFormat string
	serverURL    string
	authToken    string
)

var rootCmd = &cobra.Command{
	Use:   "admitctl",
	Short: "CLI for the device admission service",
	Long: `admitctl is a command-line interface for the device admission service.

It provides commands to preauthorize devices, inspect and decide pending
admission requests, and provision tenants.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Admission server URL (default: ADMITCTL_SERVER or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer token for tenant-scoped requests (default: ADMITCTL_TOKEN)")
}

// Execute runs the root command. The returned exit code reflects the
// error taxonomy in pkg/clierror.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *clierror.CLIError
		if errors.As(err, &cliErr) {
			clierror.PrintError(cliErr, outputFormat)
			return cliErr.ExitCode
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return clierror.ExitGeneral
	}
	return clierror.ExitSuccess
}

func resolveServer() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("ADMITCTL_SERVER"); env != "" {
		return env
	}
	return "http://localhost:8080"
}

func resolveToken() string {
	if authToken != "" {
		return authToken
	}
	return os.Getenv("ADMITCTL_TOKEN")
}

func newClient() *AdmitClient {
	return NewAdmitClient(resolveServer(), resolveToken())
}

// formatOutput handles output formatting based on the --output flag.
func formatOutput(data interface{}) error {
	switch outputFormat {
	case "json":
		return outputJSON(data)
	case "yaml":
		return outputYAML(data)
	default:
		// Table format is handled by each command
		return nil
	}
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
