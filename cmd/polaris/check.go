package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"polaris-hq/polaris/pkg/config"
	"polaris-hq/polaris/pkg/policy/compile"
	"polaris-hq/polaris/pkg/policy/manager"
	"polaris-hq/polaris/pkg/policy/residual"
	"polaris-hq/polaris/pkg/policy/store"
)

var checkFlags struct {
	policies string
	policy   string
	doc      string
	format   string
	record   bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a document against policies",
	Long: `Evaluate a document against the loaded policies.

The document is a YAML or JSON file of key/value fields. Each policy
yields one of three outcomes:

  satisfied      every rule holds
  contradiction  at least one rule is violated
  residual       fields the rules need are missing; the residual lists
                 the constraints those fields must satisfy

Examples:
  # Check a document against every policy in a directory
  polaris check --policies policies/ --doc request.yaml

  # Check against a single policy
  polaris check --policies policies/ --policy access-control --doc request.yaml

  # Record decisions to the configured store
  polaris check --doc request.yaml --record`,
	RunE: checkDocument,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.policies, "policies", "", "policy file or directory (default from config)")
	checkCmd.Flags().StringVarP(&checkFlags.policy, "policy", "p", "", "check a single policy by ID")
	checkCmd.Flags().StringVar(&checkFlags.doc, "doc", "", "document file to check (required)")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
	checkCmd.Flags().BoolVar(&checkFlags.record, "record", false, "record decisions to the configured store")
	_ = checkCmd.MarkFlagRequired("doc")
}

// CheckResult is one policy's outcome for the checked document.
type CheckResult struct {
	PolicyID    string                    `json:"policy_id"`
	Outcome     string                    `json:"outcome"`
	Constraints []residual.PathConstraint `json:"constraints,omitempty"`
}

func checkDocument(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	doc, err := readDocument(checkFlags.doc)
	if err != nil {
		return err
	}

	policyPath := checkFlags.policies
	if policyPath == "" {
		policyPath = cfg.Policy.Path
	}

	mgr, err := manager.NewManager(&manager.Config{
		Path:    policyPath,
		Compile: &compile.Options{Strict: cfg.Engine.Strict, Trace: cfg.Engine.Trace, Logger: logger},
	}, logger)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.LoadPolicies(); err != nil {
		return err
	}

	var results []CheckResult
	if checkFlags.policy != "" {
		result, err := mgr.Check(checkFlags.policy, doc)
		if err != nil {
			return err
		}
		results = append(results, newCheckResult(checkFlags.policy, result))
	} else {
		all, err := mgr.CheckAll(doc)
		if err != nil {
			return err
		}
		for _, policy := range mgr.GetAllPolicies() {
			results = append(results, newCheckResult(policy.ID, all[policy.ID]))
		}
	}

	if checkFlags.record {
		if err := recordDecisions(cfg, logger, mgr.GetPolicyVersion(), results); err != nil {
			return err
		}
	}

	return outputCheckResults(results)
}

func newCheckResult(policyID string, result residual.Result) CheckResult {
	return CheckResult{
		PolicyID:    policyID,
		Outcome:     outcomeString(result),
		Constraints: result.Constraints(),
	}
}

func outcomeString(result residual.Result) string {
	switch {
	case result.IsSatisfied():
		return "satisfied"
	case result.IsContradiction():
		return "contradiction"
	default:
		return "residual"
	}
}

func outputCheckResults(results []CheckResult) error {
	if checkFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	failed := false
	for _, result := range results {
		fmt.Printf("%s\t%s\n", result.PolicyID, result.Outcome)
		for _, pc := range result.Constraints {
			fmt.Printf("  \trequires %s %s %v\n", pc.Path, pc.Op, pc.Value)
		}
		if result.Outcome == "contradiction" {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("document violates at least one policy")
	}
	return nil
}

// recordDecisions appends the outcomes to the decision log.
func recordDecisions(cfg *config.Config, logger *slog.Logger, version string, results []CheckResult) error {
	if !cfg.Store.Enabled {
		return fmt.Errorf("--record requires store.enabled in configuration")
	}

	s, err := store.NewStore(&store.Config{
		Path:         cfg.Store.Path,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		MaxIdleConns: cfg.Store.MaxIdleConns,
		WALMode:      cfg.Store.WALMode,
		BusyTimeout:  cfg.Store.BusyTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	for _, result := range results {
		err := s.RecordDecision(ctx, &store.Decision{
			PolicyID:      result.PolicyID,
			PolicyVersion: version,
			Outcome:       result.Outcome,
			Constraints:   result.Constraints,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// readDocument reads a YAML or JSON document file into a map.
func readDocument(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %q: %w", path, err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %q: %w", path, err)
	}
	return doc, nil
}
