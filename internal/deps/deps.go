// Package deps reports whether the external tools manifestrecon shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"manifestrecon/internal/config"
)

// Requirement names an external binary and why it is needed.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries cfg refers to. pdftotext is optional
// because plain-text manifests import without it.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "pdftotext",
			Command:     cfg.Extraction.PdftotextBinary,
			Description: "extracts page text from PDF manifests (poppler-utils)",
			Optional:    true,
		},
	}
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			path, err := exec.LookPath(cmd)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
				break
			}
			status.Available = true
			status.Detail = path
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional requirements.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
