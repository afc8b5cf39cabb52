package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/orchestrator"
)

const (
	statusEnvName    = "deployment_status"
	statusOutputName = "deployment-status"
)

// summaryDetails is what the step summary renders besides the result itself.
type summaryDetails struct {
	Repository   string
	BaseBranch   string
	TargetBranch string
	Revision     string
	DryRun       bool
}

// writeStatus exposes the final status to later workflow steps.
func writeStatus(status orchestrator.Status) error {
	if err := appendKeyValue("GITHUB_ENV", statusEnvName, string(status)); err != nil {
		return err
	}
	return appendKeyValue("GITHUB_OUTPUT", statusOutputName, string(status))
}

// ReportFailure reports a run that failed before the deployment could start,
// such as on invalid inputs, so later workflow steps still see the failed
// status. It returns err wrapped in ErrDeploymentFailed.
func ReportFailure(w io.Writer, err error) error {
	result := orchestrator.Result{Status: orchestrator.StatusFailed, Err: err}

	if _, printErr := fmt.Fprintln(w, result.Status.Message()); printErr != nil {
		fmt.Fprintf(os.Stderr, "warning: could not print deployment status: %v\n", printErr)
	}
	if statusErr := writeStatus(result.Status); statusErr != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write deployment status: %v\n", statusErr)
	}
	if summaryErr := writeStepSummary(result, summaryDetails{}); summaryErr != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write step summary: %v\n", summaryErr)
	}

	if err == nil {
		return ErrDeploymentFailed
	}
	return fmt.Errorf("%w: %w", ErrDeploymentFailed, err)
}

func writeStepSummary(result orchestrator.Result, details summaryDetails) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_STEP_SUMMARY"))
	if path == "" {
		return nil
	}

	var builder strings.Builder
	builder.WriteString("## Pages deployment summary\n\n")
	builder.WriteString(renderResultDetails(result, details))

	return appendFile(path, builder.String())
}

func renderResultDetails(result orchestrator.Result, details summaryDetails) string {
	var builder strings.Builder

	builder.WriteString(result.Status.Message())
	if details.DryRun {
		builder.WriteString(" (dry run)")
	}
	builder.WriteString("\n\n")

	revision := details.Revision
	if revision == "" {
		revision = "-"
	}

	builder.WriteString("| Repository | Base | Target | Revision | Status |\n")
	builder.WriteString("| --- | --- | --- | --- | --- |\n")
	builder.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
		sanitizeMarkdownCell(details.Repository),
		sanitizeMarkdownCell(details.BaseBranch),
		sanitizeMarkdownCell(details.TargetBranch),
		sanitizeMarkdownCell(revision),
		sanitizeMarkdownCell(string(result.Status)),
	))

	if len(result.Warnings) > 0 {
		builder.WriteString("\n### Warnings\n\n")
		for _, warning := range result.Warnings {
			builder.WriteString(fmt.Sprintf("- %s\n", sanitizeListItem(warning.String())))
		}
	}

	if result.Err != nil {
		builder.WriteString(fmt.Sprintf("\n**Error:** %s\n", sanitizeListItem(result.Err.Error())))
	}

	return builder.String()
}

func appendKeyValue(envName, key, value string) error {
	path := strings.TrimSpace(os.Getenv(envName))
	if path == "" {
		return nil
	}
	if strings.ContainsAny(value, "\r\n") {
		return writeMultilineValue(path, key, value)
	}
	return appendFile(path, fmt.Sprintf("%s=%s\n", key, value))
}

func writeMultilineValue(path, key, value string) error {
	delimiter := "EOF"
	for strings.Contains(value, delimiter) {
		delimiter += "_"
	}
	return appendFile(path, fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter))
}

func appendFile(path, contents string) error {
	// GitHub Actions normally creates the directory; local runs may not.
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not create directory for %s: %v\n", path, mkErr)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close %s: %v\n", path, closeErr)
		}
	}()

	if !strings.HasSuffix(contents, "\n") {
		contents += "\n"
	}
	if _, err := file.WriteString(contents); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func sanitizeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", "<br>")
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

func sanitizeListItem(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
