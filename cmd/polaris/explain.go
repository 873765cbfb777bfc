package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/expr/parser"
	"polaris-hq/polaris/pkg/policy/compile"
	"polaris-hq/polaris/pkg/policy/engine"
	"polaris-hq/polaris/pkg/policy/manager"
	"polaris-hq/polaris/pkg/policy/negate"
)

var explainFlags struct {
	policies string
	policy   string
	doc      string
	negated  bool
	format   string
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show what a policy requires of a document",
	Long: `Show the constraints a policy imposes, as an inverse query.

Without a document, explain lists what any document must satisfy for
the policy to hold. With a partial document, bound fields participate
in evaluation and only the outstanding constraints are shown. With
--negated, explain shows what would make the policy fail instead.

Examples:
  # What must any document satisfy?
  polaris explain --policies policies/ --policy access-control

  # What does a partially known document still need?
  polaris explain --policy access-control --doc partial.yaml

  # What would violate the policy?
  polaris explain --policy access-control --negated`,
	RunE: explainPolicy,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVar(&explainFlags.policies, "policies", "", "policy file or directory (default from config)")
	explainCmd.Flags().StringVarP(&explainFlags.policy, "policy", "p", "", "policy ID to explain (required)")
	explainCmd.Flags().StringVar(&explainFlags.doc, "doc", "", "optional partial document file")
	explainCmd.Flags().BoolVar(&explainFlags.negated, "negated", false, "explain the policy's negation")
	explainCmd.Flags().StringVar(&explainFlags.format, "format", "text", "output format: text, json")
	_ = explainCmd.MarkFlagRequired("policy")
}

func explainPolicy(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	policyPath := explainFlags.policies
	if policyPath == "" {
		policyPath = cfg.Policy.Path
	}

	compileOpts := &compile.Options{Strict: cfg.Engine.Strict, Trace: cfg.Engine.Trace, Logger: logger}
	mgr, err := manager.NewManager(&manager.Config{Path: policyPath, Compile: compileOpts}, logger)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.LoadPolicies(); err != nil {
		return err
	}

	policy, err := mgr.GetPolicy(explainFlags.policy)
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if explainFlags.doc != "" {
		doc, err = readDocument(explainFlags.doc)
		if err != nil {
			return err
		}
	}

	engineCfg := compileOpts.EngineConfig()
	p := parser.New(parser.Config{
		Operators:    engineCfg.Registry,
		AllowUnknown: !engineCfg.Strict || engineCfg.Fallback != nil,
	})

	var exprs []interface{}
	for _, rule := range policy.EnabledRules() {
		exprs = append(exprs, rule.Expr)
	}
	nodes, err := p.ParseAll(exprs)
	if err != nil {
		return err
	}

	root := ast.Call(ast.OpAnd, nodes...)
	if explainFlags.negated {
		root, err = negate.Negate(root, engineCfg.Registry)
		if err != nil {
			return fmt.Errorf("policy %q cannot be negated: %w", policy.ID, err)
		}
	}

	eval, err := engine.NewEvaluator(engineCfg, logger, nil)
	if err != nil {
		return err
	}
	result, err := eval.Unify(root, doc)
	if err != nil {
		return err
	}

	output := CheckResult{
		PolicyID:    policy.ID,
		Outcome:     outcomeString(result),
		Constraints: result.Constraints(),
	}

	if explainFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	switch output.Outcome {
	case "satisfied":
		fmt.Printf("%s\talready satisfied by the given document\n", policy.ID)
	case "contradiction":
		fmt.Printf("%s\tcannot be satisfied given the document's bound fields\n", policy.ID)
	default:
		fmt.Printf("%s\trequires:\n", policy.ID)
		for _, pc := range output.Constraints {
			fmt.Printf("  \t%s %s %v\n", pc.Path, pc.Op, pc.Value)
		}
	}
	return nil
}
