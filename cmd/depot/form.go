package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/cli"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/forms"

	"github.com/spf13/cobra"
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Work with form definition files",
	Long: `Validate and evaluate custom form definitions kept as YAML or JSON files,
for example in a repository before they are uploaded through the API.`,
}

var formValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a form definition",
	Long: `Validate a form definition: field ids, types, options, conditional logic
references and dependency cycles. Problems are listed per field path and
the command exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runFormValidate,
}

var formEvalFlags struct {
	check bool
}

var formEvalCmd = &cobra.Command{
	Use:   "eval <file> <values>",
	Short: "Evaluate conditional logic against sample values",
	Long: `Evaluate a form definition against sample values and print whether each
field is visible and required. With --check the values are also validated
the way a submission would be.

Examples:
  depot form eval pre-trip.yaml values.json
  depot form eval pre-trip.yaml values.yaml --check -o json`,
	Args: cobra.ExactArgs(2),
	RunE: runFormEval,
}

func init() {
	formEvalCmd.Flags().BoolVar(&formEvalFlags.check, "check", false, "validate the values as a submission")
	formCmd.AddCommand(formValidateCmd, formEvalCmd)
	rootCmd.AddCommand(formCmd)
}

// errInvalidForm is returned after the problems have been printed.
var errInvalidForm = errors.New("form definition is invalid")

func formLimits() forms.Limits {
	d := config.Default().Forms
	return forms.Limits{MaxFields: d.MaxFields, MaxConditionsPerField: d.MaxConditionsPerField}
}

func loadDefinitionFile(path string) (*forms.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return forms.LoadDefinition(f)
}

func runFormValidate(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	def, err := loadDefinitionFile(args[0])
	if err != nil {
		return err
	}

	if err := forms.ValidateDefinition(def.Fields, formLimits()); err != nil {
		if printed := printValidation(cmd, f, err); printed {
			return errInvalidForm
		}
		return err
	}

	if _, ok := f.(*cli.TextFormatter); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d fields valid\n", args[0], len(def.Fields))
		return nil
	}
	return f.FormatTo(cmd.OutOrStdout(), cli.Table{Headers: []string{"field", "message"}})
}

func runFormEval(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	def, err := loadDefinitionFile(args[0])
	if err != nil {
		return err
	}
	if err := forms.ValidateDefinition(def.Fields, formLimits()); err != nil {
		if printValidation(cmd, f, err) {
			return errInvalidForm
		}
		return err
	}

	vf, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer vf.Close()
	values, err := forms.LoadValues(vf)
	if err != nil {
		return err
	}

	var states map[string]forms.FieldState
	var checkErr error
	if formEvalFlags.check {
		_, states, checkErr = forms.ValidateSubmission(def.Fields, values)
		var verr *apperr.ValidationError
		if checkErr != nil && !errors.As(checkErr, &verr) {
			return checkErr
		}
	} else {
		states, err = forms.Evaluate(def.Fields, values)
		if err != nil {
			return err
		}
	}

	t := cli.Table{Headers: []string{"field", "type", "visible", "required"}}
	for _, field := range def.Fields {
		st := states[field.ID]
		t.AddRow(field.ID, string(field.Type), fmt.Sprint(st.Visible), fmt.Sprint(st.Required))
	}
	if err := f.FormatTo(cmd.OutOrStdout(), t); err != nil {
		return err
	}

	if checkErr != nil {
		printValidation(cmd, f, checkErr)
		return fmt.Errorf("values do not satisfy the form: %w", checkErr)
	}
	return nil
}

// printValidation lists the fields of a validation error and reports
// whether err was one.
func printValidation(cmd *cobra.Command, f cli.Formatter, err error) bool {
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		return false
	}

	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	t := cli.Table{Headers: []string{"field", "message"}}
	for _, name := range names {
		t.AddRow(name, strings.Join(verr.Fields[name], "; "))
	}
	_ = f.FormatTo(cmd.ErrOrStderr(), t)
	return true
}
