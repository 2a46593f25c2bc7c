package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentnexus/copilot/cmd/ui"
	"github.com/agentnexus/copilot/pkg/engine/devops"
)

// scenario is the YAML shape consumed by ingest.
type scenario struct {
	Name    string `yaml:"name"`
	Entries []struct {
		Service  string            `yaml:"service"`
		Level    string            `yaml:"level"`
		Message  string            `yaml:"message"`
		AgeSecs  int               `yaml:"age_seconds"`
		Repeat   int               `yaml:"repeat"`
		Metadata map[string]string `yaml:"metadata"`
	} `yaml:"entries"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [scenario.yaml]",
	Short: "Seed the log store from a scenario file",
	Long: `Ingest loads log records into the log store so detection tools have
data to work with. Without an argument it loads a built-in incident:
an error spike on payment-gateway.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		var sc scenario
		if len(args) == 1 {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading scenario: %w", err)
			}
			if err := yaml.Unmarshal(raw, &sc); err != nil {
				return fmt.Errorf("parsing scenario: %w", err)
			}
		} else {
			sc = builtinScenario()
		}

		now := time.Now()
		total := 0
		for _, e := range sc.Entries {
			repeat := e.Repeat
			if repeat <= 0 {
				repeat = 1
			}
			for i := 0; i < repeat; i++ {
				err := a.Logs.Ingest(ctx, devops.LogRecord{
					Timestamp: now.Add(-time.Duration(e.AgeSecs) * time.Second),
					Service:   e.Service,
					Level:     e.Level,
					Message:   e.Message,
					Metadata:  e.Metadata,
				})
				if err != nil {
					return err
				}
				total++
			}
		}

		ui.Hint(fmt.Sprintf("ingested %d record(s) from scenario %q", total, sc.Name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// builtinScenario is the shipped demo incident.
func builtinScenario() scenario {
	var sc scenario
	err := yaml.Unmarshal([]byte(builtinScenarioYAML), &sc)
	if err != nil {
		panic(fmt.Sprintf("builtin scenario is invalid: %v", err))
	}
	return sc
}

const builtinScenarioYAML = `
name: payment-gateway error spike
entries:
  - service: payment-gateway
    level: INFO
    message: "processed payment batch"
    age_seconds: 240
    repeat: 4
  - service: payment-gateway
    level: ERROR
    message: "connection pool exhausted: timed out acquiring connection"
    age_seconds: 120
    repeat: 8
    metadata:
      pool: primary
  - service: payment-gateway
    level: ERROR
    message: "upstream settlement request failed: 503"
    age_seconds: 60
    repeat: 4
  - service: checkout
    level: INFO
    message: "cart checkout completed"
    age_seconds: 90
    repeat: 6
`
