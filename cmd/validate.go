package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/madlink306/antsdr-streamd/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the daemon,
then print the effective configuration with defaults applied.

Examples:
  antsdrd validate -f /etc/antsdrd/antsdrd.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

var validateConfigFile string

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "",
		"configuration file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidateCommand() {
	cfg, err := config.Load(validateConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("VALID: effective configuration:")
	out, err := yaml.Marshal(map[string]*config.GlobalConfig{"antsdrd": cfg})
	if err != nil {
		exitWithError("failed to render config", err)
	}
	os.Stdout.Write(out)
}
