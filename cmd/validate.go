package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/kval/internal/engine"
	"github.com/sells-group/kval/internal/examples"
	"github.com/sells-group/kval/internal/model"
	"github.com/sells-group/kval/internal/summary"
	"github.com/sells-group/kval/pkg/anthropic"
)

var (
	validateSnapshotPath string
	validatePolicyPath   string
	validateAI           bool
	validateOutPath      string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a knowledge snapshot against a reference policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		snap, err := readSnapshotFile(validateSnapshotPath)
		if err != nil {
			return err
		}
		pol, err := readPolicyFile(validatePolicyPath)
		if err != nil {
			return err
		}

		var aiText string
		if validateAI {
			if cfg.Anthropic.Key == "" {
				return eris.New("validate: --ai requires an Anthropic API key (KVAL_ANTHROPIC_KEY)")
			}
			summarizer := summary.NewAnthropicSummarizer(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
			deterministic := engine.Validate(snap, pol, "")
			aiText, err = summarizer.Summarize(ctx, snap, pol, deterministic)
			if err != nil {
				return eris.Wrap(err, "validate: AI summary")
			}
		}

		report := engine.Validate(snap, pol, aiText)

		raw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "validate: marshal report")
		}
		if validateOutPath != "" {
			if err := os.WriteFile(validateOutPath, raw, 0o644); err != nil {
				return eris.Wrap(err, "validate: write report")
			}
			zap.L().Info("report written",
				zap.String("path", validateOutPath),
				zap.Int("issues", report.Summary.TotalIssues),
			)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		}

		if report.Summary.BySeverity[model.SeverityCritical] > 0 {
			return eris.Errorf("validate: %d critical issue(s) found", report.Summary.BySeverity[model.SeverityCritical])
		}
		return nil
	},
}

func readSnapshotFile(path string) (*model.Snapshot, error) {
	if path == "" {
		return examples.DefaultSnapshot(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "validate: read snapshot %s", path)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, eris.Wrapf(err, "validate: parse snapshot %s", path)
	}
	return &snap, nil
}

func readPolicyFile(path string) (*model.Policy, error) {
	if path == "" {
		return examples.DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "validate: read policy %s", path)
	}
	var pol model.Policy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &pol)
	default:
		err = json.Unmarshal(raw, &pol)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "validate: parse policy %s", path)
	}
	return &pol, nil
}

func init() {
	validateCmd.Flags().StringVar(&validateSnapshotPath, "snapshot", "", "snapshot JSON file (default: built-in demo snapshot)")
	validateCmd.Flags().StringVar(&validatePolicyPath, "policy", "", "policy JSON or YAML file (default: built-in policy)")
	validateCmd.Flags().BoolVar(&validateAI, "ai", false, "attach AI commentary to the report")
	validateCmd.Flags().StringVar(&validateOutPath, "out", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(validateCmd)
}
