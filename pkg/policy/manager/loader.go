package manager

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"polaris-hq/polaris/pkg/policy/compile"
)

// policyFile is the YAML shape of a policy document.
type policyFile struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Version     string     `yaml:"version"`
	Rules       []ruleFile `yaml:"rules"`
}

// ruleFile is the YAML shape of a single rule.
type ruleFile struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Expr        interface{} `yaml:"expr"`
	Disabled    bool        `yaml:"disabled"`
}

// Loader loads and compiles policies from the file system. It supports
// single files and directory trees.
type Loader struct {
	config  *LoaderConfig
	compile *compile.Options
}

// NewLoader creates a policy loader. The compile options are applied to
// every rule; nil selects the defaults.
func NewLoader(config *LoaderConfig, opts *compile.Options) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{
		config:  config,
		compile: opts,
	}
}

// LoadFromFile loads a single policy file. It validates file size and
// UTF-8 encoding, decodes the YAML, and compiles every rule.
func (l *Loader) LoadFromFile(path string) (*Policy, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		if os.IsPermission(err) {
			return nil, &LoadError{FilePath: path, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}

	if fileInfo.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", fileInfo.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	return l.decode(path, data)
}

// decode parses YAML bytes into a compiled policy.
func (l *Loader) decode(path string, data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &PolicyError{FilePath: path, Message: "YAML decoding failed", Cause: err}
	}

	if file.ID == "" {
		return nil, &PolicyError{FilePath: path, Message: "policy id is required"}
	}
	if len(file.Rules) == 0 {
		return nil, &PolicyError{FilePath: path, PolicyID: file.ID, Message: "policy declares no rules"}
	}

	policy := &Policy{
		ID:          file.ID,
		Name:        file.Name,
		Description: file.Description,
		Version:     file.Version,
		SourceFile:  path,
	}

	var enabled []interface{}
	for _, rf := range file.Rules {
		if rf.ID == "" {
			return nil, &PolicyError{FilePath: path, PolicyID: file.ID, Message: "rule id is required"}
		}
		if rf.Expr == nil {
			return nil, &PolicyError{FilePath: path, PolicyID: file.ID, RuleID: rf.ID, Message: "rule expr is required"}
		}

		check, err := compile.Compile([]interface{}{rf.Expr}, l.compile)
		if err != nil {
			return nil, &PolicyError{
				FilePath: path,
				PolicyID: file.ID,
				RuleID:   rf.ID,
				Message:  "rule expression failed to compile",
				Cause:    err,
			}
		}

		policy.Rules = append(policy.Rules, &Rule{
			ID:          rf.ID,
			Description: rf.Description,
			Expr:        rf.Expr,
			Disabled:    rf.Disabled,
			Check:       check,
		})
		if !rf.Disabled {
			enabled = append(enabled, rf.Expr)
		}
	}

	check, err := compile.Compile(enabled, l.compile)
	if err != nil {
		return nil, &PolicyError{FilePath: path, PolicyID: file.ID, Message: "policy failed to compile", Cause: err}
	}
	policy.Check = check

	return policy, nil
}

// LoadFromDirectory loads all policy files from a directory recursively.
// It returns the successfully loaded policies along with any per-file
// errors; loading fails outright only when every file fails.
func (l *Loader) LoadFromDirectory(dir string) ([]*Policy, error) {
	fileInfo, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: dir, Message: "directory not found", Cause: err}
		}
		return nil, &LoadError{FilePath: dir, Message: "failed to access directory", Cause: err}
	}
	if !fileInfo.IsDir() {
		return nil, &LoadError{FilePath: dir, Message: "not a directory"}
	}

	policyFiles, err := l.collectPolicyFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(policyFiles) == 0 {
		return nil, &LoadError{FilePath: dir, Message: "no policy files found in directory"}
	}

	var policies []*Policy
	errList := &ErrorList{}
	for _, filePath := range policyFiles {
		policy, err := l.LoadFromFile(filePath)
		if err != nil {
			errList.Add(err)
			continue
		}
		policies = append(policies, policy)
	}

	if len(policies) == 0 && errList.HasErrors() {
		return nil, errList
	}
	if errList.HasErrors() {
		return policies, errList
	}
	return policies, nil
}

// collectPolicyFiles gathers policy file paths under dir, filtering by
// extension and skipping hidden entries per configuration.
func (l *Loader) collectPolicyFiles(dir string) ([]string, error) {
	var policyFiles []string
	visited := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !l.config.FollowSymlinks {
				return nil
			}
			realPath, err := filepath.EvalSymlinks(path)
			if err != nil {
				return &LoadError{FilePath: path, Message: "failed to resolve symlink", Cause: err}
			}
			if visited[realPath] {
				return &LoadError{FilePath: path, Message: "symlink loop detected"}
			}
			visited[realPath] = true
			if !l.hasValidExtension(realPath) {
				return nil
			}
			policyFiles = append(policyFiles, path)
			return nil
		}

		if !l.hasValidExtension(path) {
			return nil
		}
		policyFiles = append(policyFiles, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}

	return policyFiles, nil
}

// hasValidExtension checks the file against the configured extensions.
func (l *Loader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, validExt := range l.config.AllowedExtensions {
		if ext == strings.ToLower(validExt) {
			return true
		}
	}
	return false
}

// IsDirectory checks if the given path is a directory.
func (l *Loader) IsDirectory(path string) (bool, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, &LoadError{FilePath: path, Message: "path does not exist", Cause: err}
		}
		return false, &LoadError{FilePath: path, Message: "failed to access path", Cause: err}
	}
	return fileInfo.IsDir(), nil
}
