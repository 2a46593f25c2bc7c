// Package cmd implements the copilot command-line interface.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Global flags
var (
	configFlag   string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "DevOps Copilot - an autonomous incident-response workflow engine",
	Long: `DevOps Copilot plans and executes multi-step remediation workflows
over durable sessions:

- Detect:    check service health against anomaly thresholds
- Diagnose:  search logs and runbooks for root causes
- Remediate: restart services, gated behind human approval
- Report:    notify channels and write post-incident summaries

State lives in the session store, so a process restart between steps
resumes exactly where the previous run stopped.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	loadDotEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file and sets variables not already present in
// the environment.
func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		if (strings.HasPrefix(val, "\"") && strings.HasSuffix(val, "\"")) ||
			(strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'")) {
			val = val[1 : len(val)-1]
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}
