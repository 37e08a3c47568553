package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/edmd/internal/config"
	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/model"
)

// Issue codes reported by validate.
const (
	CodeConfig  = "E_CONFIG"
	CodeOverlap = "E_OVERLAP"
	CodeState   = "E_STATE"
)

// ValidationIssue is one problem found in a configuration.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Particles int               `json:"particles,omitempty"`
	Issues    []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a configuration without running it",
		Long: `Check a YAML or CUE configuration against the schema, build the
simulation and check the initial state for overlapping particles and
particles outside their cells, without executing any event.

Exit codes:
  0 - Configuration is valid
  1 - Initial state has violations (overlaps, etc.)
  2 - Configuration error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(path)
	if err != nil {
		return outputIssues(formatter, configIssues(err), ExitCommandError)
	}
	formatter.VerboseLog("Loaded %s config %s (hash %s)", cfg.Format(), path, cfg.Hash())

	logger := discardLogger()
	if opts.Verbose {
		logger = formatter.Logger()
	}
	eng, err := config.Build(cfg, engine.WithLogger(logger))
	if err != nil {
		return outputIssues(formatter, configIssues(err), ExitCommandError)
	}
	if err := eng.Initialise(); err != nil {
		return outputIssues(formatter, configIssues(err), ExitCommandError)
	}
	formatter.VerboseLog("Initialised %d particle(s)", len(eng.Particles()))

	var issues []ValidationIssue
	for _, v := range eng.ValidateState() {
		code := CodeState
		if model.IsOverlapViolation(v) {
			code = CodeOverlap
		}
		issues = append(issues, ValidationIssue{Code: code, Message: v.Error()})
	}
	if len(issues) > 0 {
		return outputIssues(formatter, issues, ExitFailure)
	}

	if formatter.JSON() {
		return formatter.Respond(ValidationResult{Valid: true, Particles: len(eng.Particles())}, eng.RunID())
	}
	fmt.Fprintf(formatter.Writer, "✓ %s valid (%d particles)\n", path, len(eng.Particles()))
	return nil
}

// configIssues flattens a (possibly joined) configuration error into
// issues, keeping source lines where the schema reported them.
func configIssues(err error) []ValidationIssue {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var issues []ValidationIssue
		for _, e := range joined.Unwrap() {
			issues = append(issues, configIssues(e)...)
		}
		return issues
	}
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		issue := ValidationIssue{Code: CodeConfig, Field: cfgErr.Field, Message: cfgErr.Message}
		if cfgErr.Pos.IsValid() {
			issue.Line = cfgErr.Pos.Line()
		}
		return []ValidationIssue{issue}
	}
	return []ValidationIssue{{Code: CodeConfig, Message: err.Error()}}
}

// outputIssues reports issues and returns an error with the given exit
// code. The first issue becomes the error message.
func outputIssues(formatter *OutputFormatter, issues []ValidationIssue, code int) error {
	exit := WrapExitError(code, fmt.Sprintf("validation failed with %d issue(s)", len(issues)), errors.New(issues[0].Message))
	if formatter.JSON() {
		return formatter.Fail(issues[0].Code, ValidationResult{Valid: false, Issues: issues}, "", exit)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(w, "line %d\n", issue.Line)
		}
		if issue.Field != "" {
			fmt.Fprintf(w, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
	return exit
}
