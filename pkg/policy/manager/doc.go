// Package manager provides policy lifecycle management: loading policy
// files from the file system, compiling their rules, and serving the
// compiled set with hot-reload support.
//
// # Core Components
//
// Manager is the main orchestrator coordinating loading, compilation,
// registration, and hot-reload.
//
// Loader handles file system operations and YAML decoding, supporting
// both single files and directory trees. Every rule expression is
// compiled at load time, so a policy set that loads successfully is
// guaranteed evaluable.
//
// Registry provides thread-safe in-memory storage for loaded policies.
// Reloads replace the whole set atomically; concurrent readers never
// observe a partial update.
//
// FileWatcher monitors the file system for changes and triggers reloads
// with debouncing to prevent reload storms.
//
// # Policy Files
//
// A policy file declares an ID and a list of rules, each carrying a
// tagged-tuple constraint expression:
//
//	id: access-control
//	name: Access control
//	version: "1.0.0"
//	rules:
//	  - id: admins-only
//	    expr: ["=", "doc.role", "admin"]
//	  - id: adults-only
//	    expr: [">", "doc.age", 18]
//
// The rules form an implicit conjunction. Evaluating a policy against a
// document yields the engine's three-valued result: satisfied,
// contradiction, or a residual naming the outstanding constraints.
//
// # Basic Usage
//
//	mgr, err := manager.NewManager(&manager.Config{
//	    Path:  "policies/",
//	    Watch: true,
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := mgr.LoadPolicies(); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := mgr.Check("access-control", doc)
//
// Reloads are atomic with error recovery: if any file fails to load or
// compile, the previous policy set stays active.
package manager
