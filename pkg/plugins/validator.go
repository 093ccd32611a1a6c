package plugins

import (
	"archive/zip"
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// SecurityIssue represents a concern found while scanning plugin sources
type SecurityIssue struct {
	Severity       string `json:"severity"` // high, medium, low, warning
	Category       string `json:"category"`
	Description    string `json:"description"`
	File           string `json:"file,omitempty"`
	Line           int    `json:"line,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	CWEID          string `json:"cwe_id,omitempty"`
}

// ValidationResult contains the complete archive validation results
type ValidationResult struct {
	Archive        string            `json:"archive"`
	Valid          bool              `json:"valid"`
	Descriptor     *Descriptor       `json:"descriptor,omitempty"`
	ManifestErrors []ValidationError `json:"manifest_errors,omitempty"`
	SecurityIssues []SecurityIssue   `json:"security_issues,omitempty"`
	Packages       []string          `json:"packages"`
	ScanDuration   time.Duration     `json:"scan_duration"`
}

// Validator inspects plugin archives without running them
type Validator struct {
	dangerousImports map[string]string // import -> severity
	logger           *logrus.Logger
}

var secretPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"API Key", regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]+\s*["']([a-zA-Z0-9]{20,})["']`)},
	{"Password", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]+\s*["']([^"']{8,})["']`)},
	{"Token", regexp.MustCompile(`(?i)(token|auth[_-]?token)\s*[:=]+\s*["']([a-zA-Z0-9]{20,})["']`)},
	{"AWS Key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"Private Key", regexp.MustCompile(`-----BEGIN (RSA |EC )?PRIVATE KEY-----`)},
}

// NewValidator creates a new archive validator
func NewValidator(logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Validator{
		dangerousImports: map[string]string{
			"os/exec":  "high",
			"syscall":  "high",
			"unsafe":   "high",
			"plugin":   "high",
			"net":      "medium",
			"net/http": "medium",
			"os":       "low",
		},
		logger: logger,
	}
}

// ValidateArchive reads the descriptor, checks that the main package is
// present and scans every Go file in the archive
func (v *Validator) ValidateArchive(ctx context.Context, archivePath string) (*ValidationResult, error) {
	start := time.Now()
	result := &ValidationResult{Archive: archivePath}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	desc, err := ReadDescriptorFS(r)
	if err != nil {
		result.ManifestErrors = append(result.ManifestErrors, ValidationError{Field: "descriptor", Message: err.Error()})
	} else {
		result.Descriptor = desc
		result.ManifestErrors = append(result.ManifestErrors, ValidateDescriptor(desc)...)
	}

	packages, issues, err := v.scanSources(ctx, r)
	if err != nil {
		return nil, err
	}
	result.Packages = packages
	result.SecurityIssues = issues

	if desc != nil {
		if importPath, _, err := SplitMainClass(desc.Main); err == nil {
			if _, err := fs.Stat(r, sourcePath(importPath)); err != nil {
				result.ManifestErrors = append(result.ManifestErrors, ValidationError{
					Field:   "main",
					Message: fmt.Sprintf("package %s not found under %s/", importPath, sourceRoot),
				})
			}
		}
	}

	result.Valid = len(result.ManifestErrors) == 0
	result.ScanDuration = time.Since(start)

	v.logger.WithFields(logrus.Fields{
		"archive": archivePath,
		"issues":  len(result.SecurityIssues),
		"valid":   result.Valid,
	}).Info("Validated plugin archive")
	return result, nil
}

// scanSources parses the imports of every .go file under src/ and flags
// dangerous imports and embedded secrets
func (v *Validator) scanSources(ctx context.Context, fsys fs.FS) ([]string, []SecurityIssue, error) {
	var issues []SecurityIssue
	packageSet := make(map[string]bool)
	found := make(map[string][]string) // import -> files
	fset := token.NewFileSet()

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || path.Ext(name) != ".go" {
			return nil
		}

		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}

		if rel, ok := cutSourceRoot(path.Dir(name)); ok {
			packageSet[rel] = true
		}

		file, err := parser.ParseFile(fset, name, src, parser.ImportsOnly)
		if err != nil {
			issues = append(issues, SecurityIssue{
				Severity:    "warning",
				Category:    "parse-error",
				Description: err.Error(),
				File:        name,
			})
			return nil
		}
		for _, imp := range file.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			if _, ok := v.dangerousImports[p]; ok {
				found[p] = append(found[p], name)
			}
		}

		for _, secret := range secretPatterns {
			if loc := secret.pattern.FindIndex(src); loc != nil {
				issues = append(issues, SecurityIssue{
					Severity:       "high",
					Category:       "hardcoded-secret",
					Description:    fmt.Sprintf("Potential hardcoded %s detected", secret.name),
					File:           name,
					Line:           lineOf(src, loc[0]),
					Recommendation: "Remove hardcoded secrets. Use environment variables or secure configuration.",
					CWEID:          "CWE-798",
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan archive: %w", err)
	}

	for _, imp := range sortedKeys(found) {
		files := found[imp]
		issues = append(issues, SecurityIssue{
			Severity:       v.dangerousImports[imp],
			Category:       "dangerous-import",
			Description:    fmt.Sprintf("Plugin imports potentially dangerous package: %s (found in %d file(s))", imp, len(files)),
			File:           files[0],
			Recommendation: fmt.Sprintf("Review usage of %s; plugins should reach the server through %s", imp, pluginapi.ImportPath),
		})
	}

	return sortedKeys(packageSet), issues, nil
}

func cutSourceRoot(dir string) (string, bool) {
	prefix := sourceRoot + "/"
	if len(dir) <= len(prefix) || dir[:len(prefix)] != prefix {
		return "", false
	}
	return dir[len(prefix):], true
}

func lineOf(src []byte, offset int) int {
	line := 1
	for _, b := range src[:offset] {
		if b == '\n' {
			line++
		}
	}
	return line
}
