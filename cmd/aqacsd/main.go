package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/aqacs/internal/cli"
	"github.com/cloo-solutions/aqacs/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aqacsd",
		Short: "aqacs daemon and admin CLI",
		Long:  "aqacs server: tariff lookup and question answering over HTSUS snapshots, plus snapshot indexing and key management",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IndexCmd())
	rootCmd.AddCommand(admin.SnapshotCmd())
	rootCmd.AddCommand(admin.KeygenCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
