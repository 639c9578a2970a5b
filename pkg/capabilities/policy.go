// Package capabilities implements the file-system capability handed to
// evaluation sessions, and the policy files that gate it.
package capabilities

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Capability identifiers checked by the OS-backed file system.
const (
	CapFileRead  = "fs_read"
	CapFileWrite = "fs_write"
)

// FileSystem is the capability the engine calls out through for the file
// intrinsics. Hosts that must deny or virtualize file access provide their
// own implementation.
type FileSystem interface {
	ReadFile(path string) (string, error)
	WriteFile(path string, text string) error
}

// Policy defines which capabilities are allowed for program execution.
type Policy struct {
	Allowed map[string]bool
}

// PolicyFile represents the JSON structure of a policy file.
type PolicyFile struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// IsAllowed checks whether a capability is permitted by this policy.
// A nil Allowed map signals allow-all.
func (p *Policy) IsAllowed(cap string) bool {
	if p == nil {
		return false
	}
	if p.Allowed == nil {
		return true
	}
	return p.Allowed[cap]
}

// LoadPolicy loads capability policies from project and user config files.
// Policy precedence: project (.tumblepolicy.json) → user
// (~/.tumble/policy.json) → deny-all default.
func LoadPolicy(projectDir string) *Policy {
	return LoadPolicyOrDefault(projectDir, DenyAll())
}

// LoadPolicyOrDefault is LoadPolicy with an explicit fallback for when no
// policy file exists; interactive hosts pass AllowAll.
func LoadPolicyOrDefault(projectDir string, fallback *Policy) *Policy {
	projectPath := filepath.Join(projectDir, ".tumblepolicy.json")
	if pf, err := loadPolicyFile(projectPath); err == nil {
		return buildPolicy(pf)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, ".tumble", "policy.json")
		if pf, err := loadPolicyFile(userPath); err == nil {
			return buildPolicy(pf)
		}
	}

	return fallback
}

func loadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf PolicyFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, err
	}
	return &pf, nil
}

func buildPolicy(pf *PolicyFile) *Policy {
	allowed := make(map[string]bool)
	for _, cap := range pf.Allow {
		allowed[cap] = true
	}
	// Deny overrides allow
	for _, cap := range pf.Deny {
		delete(allowed, cap)
	}
	return &Policy{Allowed: allowed}
}

// AllowAll returns a policy that permits all capabilities.
func AllowAll() *Policy {
	return &Policy{Allowed: nil}
}

// DenyAll returns a policy that denies all capabilities.
func DenyAll() *Policy {
	return &Policy{Allowed: make(map[string]bool)}
}
