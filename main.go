package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"demodesk/internal/cli"
)

func main() {
	root := &cobra.Command{
		Use:   "demodesk",
		Short: "Provision demo identities and generate walkthrough scripts",
		Long: `demodesk provisions a short-lived demo directory account for a
visiting operator and generates a structured, presenter-ready
walkthrough script for demonstrating the product to a customer.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		cli.ServeCommand(),
		cli.InitDBCommand(),
		cli.ProvisionCommand(),
		cli.GenerateCommand(),
		cli.TeardownCommand(),
	)

	if err := root.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
