// Polaris is a declarative constraint engine for structured documents.
//
// Policies are sets of constraint expressions evaluated against
// documents with three possible outcomes: satisfied, contradicted, or a
// residual naming what is still required of an incomplete document.
//
// Usage:
//
//	# Validate policy files
//	polaris lint --dir policies/
//
//	# Check a document against the loaded policies
//	polaris check --doc request.yaml
//
//	# Show what a policy requires of any document
//	polaris explain --policy access-control
//
//	# Show version information
//	polaris version
package main

func main() {
	Execute()
}
