package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attendance-scanner",
	Short: "Face recognition class attendance",
	Long: `Attendance Scanner watches a camera, recognizes enrolled students and marks
them Present or Late in the active class session. It also manages classes,
subjects, rosters and face enrollments, and exports attendance as CSV.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
