package capabilities

import (
	"fmt"
	"os"
)

// OSFS reads and writes through the operating system, gated by a policy.
type OSFS struct {
	policy *Policy
}

// NewOSFS creates an OS-backed file system guarded by the given policy.
func NewOSFS(policy *Policy) *OSFS {
	return &OSFS{policy: policy}
}

// ReadFile returns the UTF-8 contents of the file at path.
func (fs *OSFS) ReadFile(path string) (string, error) {
	if !fs.policy.IsAllowed(CapFileRead) {
		return "", fmt.Errorf("capability '%s' denied by policy", CapFileRead)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile replaces the file at path with the given UTF-8 text.
func (fs *OSFS) WriteFile(path string, text string) error {
	if !fs.policy.IsAllowed(CapFileWrite) {
		return fmt.Errorf("capability '%s' denied by policy", CapFileWrite)
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
