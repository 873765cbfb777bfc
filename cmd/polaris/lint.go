package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/policy/manager"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate policy files",
	Long: `Validate policy files for syntax and expression errors.

The lint command decodes policy files and compiles every rule:
  - YAML syntax validation
  - Policy structure validation (required ids, non-empty rule sets)
  - Expression compilation (operator names, arity, document paths)
  - Compile-time contradiction detection across a policy's rules

Examples:
  # Lint single file
  polaris lint --file policies.yaml

  # Lint directory
  polaris lint --dir policies/

  # JSON output for CI/CD
  polaris lint --file policies.yaml --format json`,
	RunE: lintPolicies,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "policy file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of policy files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult represents the validation result for a single policy file.
type LintResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	PolicyID string   `json:"policy_id,omitempty"`
	Rules    int      `json:"rules,omitempty"`
	Constant []string `json:"constant_rules,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func lintPolicies(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list policy files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no policy files found")
	}

	loader := manager.NewLoader(manager.DefaultLoaderConfig(), nil)

	results := make([]LintResult, 0, len(files))
	failed := false
	for _, file := range files {
		result := lintFile(loader, file)
		if !result.Valid {
			failed = true
		}
		results = append(results, result)
	}

	if lintFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, result := range results {
			if result.Valid {
				fmt.Printf("ok\t%s\t(%s, %d rules)\n", result.File, result.PolicyID, result.Rules)
				for _, rule := range result.Constant {
					fmt.Printf("  \twarning: rule %q always evaluates to the same outcome\n", rule)
				}
			} else {
				fmt.Printf("FAIL\t%s\n  \t%s\n", result.File, result.Error)
			}
		}
	}

	if failed {
		return fmt.Errorf("lint failed")
	}
	return nil
}

// lintFile loads and compiles one policy file.
func lintFile(loader *manager.Loader, path string) LintResult {
	policy, err := loader.LoadFromFile(path)
	if err != nil {
		return LintResult{File: path, Valid: false, Error: err.Error()}
	}

	result := LintResult{
		File:     path,
		Valid:    true,
		PolicyID: policy.ID,
		Rules:    len(policy.Rules),
	}

	// A rule whose check is constant never depends on the document;
	// usually a sign of a typo in the expression.
	for _, rule := range policy.Rules {
		if rule.Check.IsConstant() {
			result.Constant = append(result.Constant, rule.ID)
		}
	}
	return result
}
