package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cardwatch/cardwatch/tools/dashgen/dashboards"
	"github.com/cardwatch/cardwatch/tools/dashgen/rules"
)

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config, validateOnly bool) error {
	var artifacts []artifact

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return fmt.Errorf("building overview dashboard: %w", err)
		}
		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling dashboard: %w", err)
		}
		artifacts = append(artifacts, artifact{
			relPath: filepath.Join("dashboards", "cardwatch-overview.json"),
			data:    data,
		})
	}

	if cfg.RulesEnabled {
		recording, err := yaml.Marshal(rules.RecordingRules())
		if err != nil {
			return fmt.Errorf("marshaling recording rules: %w", err)
		}
		artifacts = append(artifacts, artifact{
			relPath: filepath.Join("rules", "cardwatch-recording-rules.yaml"),
			data:    recording,
		})

		alerts, err := yaml.Marshal(rules.AlertRules())
		if err != nil {
			return fmt.Errorf("marshaling alert rules: %w", err)
		}
		artifacts = append(artifacts, artifact{
			relPath: filepath.Join("rules", "cardwatch-alert-rules.yaml"),
			data:    alerts,
		})
	}

	if validateOnly {
		fmt.Printf("validation passed: %d artifact(s)\n", len(artifacts))
		return nil
	}

	for _, a := range artifacts {
		dest := filepath.Join(cfg.OutputDir, a.relPath)
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return fmt.Errorf("creating output directory for %s: %w", a.relPath, err)
		}
		if err := os.WriteFile(dest, a.data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", a.relPath, err)
		}
		fmt.Printf("wrote %s\n", dest)
	}

	return nil
}

type artifact struct {
	relPath string
	data    []byte
}
