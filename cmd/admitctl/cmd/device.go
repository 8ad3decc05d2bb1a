package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	listStatus  string
	listPage    int
	listPerPage int
)

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceShowCmd)
	deviceCmd.AddCommand(devicePreauthCmd)
	deviceCmd.AddCommand(deviceAcceptCmd)
	deviceCmd.AddCommand(deviceRejectCmd)
	deviceCmd.AddCommand(deviceDeleteCmd)

	deviceListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: pending, preauthorized, accepted, rejected")
	deviceListCmd.Flags().IntVar(&listPage, "page", 0, "Page number")
	deviceListCmd.Flags().IntVar(&listPerPage, "per-page", 0, "Results per page")

	devicePreauthCmd.Flags().String("identity", "", "Device identity attributes as a JSON document (required)")
	devicePreauthCmd.Flags().String("key-file", "", "Path to the device public key in PEM format (required)")
	devicePreauthCmd.MarkFlagRequired("identity")
	devicePreauthCmd.MarkFlagRequired("key-file")
}

var (
	acceptedFmt = color.New(color.FgGreen).SprintFunc()
	rejectedFmt = color.New(color.FgRed).SprintFunc()
	pendingFmt  = color.New(color.FgYellow).SprintFunc()
	preauthFmt  = color.New(color.FgCyan).SprintFunc()
)

func renderStatus(status string) string {
	switch status {
	case "accepted":
		return acceptedFmt(status)
	case "rejected":
		return rejectedFmt(status)
	case "pending":
		return pendingFmt(status)
	case "preauthorized":
		return preauthFmt(status)
	default:
		return status
	}
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage device admission requests",
	Long:  `Commands to list, inspect, preauthorize, and decide device admission requests.`,
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List device authorization sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := newClient().ListDevices(context.Background(), listStatus, listPage, listPerPage)
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			if len(devices) == 0 {
				fmt.Println("[]")
				return nil
			}
			return formatOutput(devices)
		}

		if len(devices) == 0 {
			fmt.Println("No devices found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDEVICE ID\tSTATUS\tREQUESTED")
		for _, dev := range devices {
			requested := "-"
			if dev.RequestTime != nil {
				requested = *dev.RequestTime
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				dev.ID, dev.DeviceID, renderStatus(dev.Status), requested)
		}
		w.Flush()
		return nil
	},
}

var deviceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one authorization set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := newClient().GetDevice(context.Background(), args[0])
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			return formatOutput(dev)
		}

		fmt.Printf("ID:              %s\n", dev.ID)
		fmt.Printf("Device ID:       %s\n", dev.DeviceID)
		fmt.Printf("Status:          %s\n", renderStatus(dev.Status))
		fmt.Printf("Identity:        %s\n", dev.DeviceIdentity)
		if dev.SequenceNumber != 0 {
			fmt.Printf("Sequence number: %d\n", dev.SequenceNumber)
		}
		if dev.RequestTime != nil {
			fmt.Printf("Requested:       %s\n", *dev.RequestTime)
		}
		fmt.Printf("Public key:\n%s", dev.Key)
		return nil
	},
}

var devicePreauthCmd = &cobra.Command{
	Use:   "preauthorize",
	Short: "Preauthorize a device before its first connection",
	Long: `Create a preauthorized entry for a device that has not contacted the
service yet. When the device later submits its admission request with the
same identity and key, it is admitted without operator action.

Example:
  admitctl device preauthorize \
    --identity '{"mac":"00:01:02:03:04:05","serial":"SN12345"}' \
    --key-file device.pub.pem`,
	RunE: func(cmd *cobra.Command, args []string) error {
		identityData, _ := cmd.Flags().GetString("identity")
		keyFile, _ := cmd.Flags().GetString("key-file")

		key, err := os.ReadFile(keyFile)
		if err != nil {
			return fmt.Errorf("failed to read key file: %w", err)
		}

		dev, err := newClient().Preauthorize(context.Background(), identityData, string(key))
		if err != nil {
			return err
		}

		if outputFormat != "table" {
			return formatOutput(dev)
		}
		fmt.Printf("Preauthorized device %s (authorization set %s)\n", dev.DeviceID, dev.ID)
		return nil
	},
}

var deviceAcceptCmd = &cobra.Command{
	Use:   "accept <id>",
	Short: "Accept a device admission request",
	Args:  cobra.ExactArgs(1),
	RunE:  decideDevice("accepted"),
}

var deviceRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a device admission request",
	Args:  cobra.ExactArgs(1),
	RunE:  decideDevice("rejected"),
}

func decideDevice(status string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := newClient().SetStatus(ctx, args[0], status); err != nil {
			return err
		}
		fmt.Printf("Authorization set %s is now %s\n", args[0], renderStatus(status))
		return nil
	}
}

var deviceDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an authorization set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteDevice(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted authorization set %s\n", args[0])
		return nil
	},
}
