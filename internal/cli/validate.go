package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pagebuilder/internal/compiler"
	"pagebuilder/internal/models"
	"pagebuilder/internal/validate"
)

// errInvalid makes the command exit non-zero after the report was printed.
var errInvalid = errors.New("section tree is invalid")

// fileVersions serves blueprint versions loaded from a JSON file.
type fileVersions map[int64]*models.BlueprintVersion

func (f fileVersions) BlueprintVersion(_ context.Context, id int64) (*models.BlueprintVersion, error) {
	return f[id], nil
}

func loadVersions(path string) (fileVersions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []models.BlueprintVersion
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode blueprint versions %s: %w", path, err)
	}
	out := make(fileVersions, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

// decodeSections accepts either a bare array of sections or an object with
// a "sections" key, the body of PUT /api/templates/{id}/structure.
func decodeSections(raw []byte) ([]models.SectionNode, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var sections []models.SectionNode
		if err := json.Unmarshal(raw, &sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
		return sections, nil
	}
	var body struct {
		Sections []models.SectionNode `json:"sections"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	if body.Sections == nil {
		return nil, errors.New(`input has no "sections" array`)
	}
	return body.Sections, nil
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		versionsFile string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a section tree against the type registry",
		Long: `Validate reads a section tree (a JSON array, or an object with a
"sections" key) and reports every structural violation. Use - to read stdin.

Blueprint-bound components are checked against the versions in --versions.
Without it every blueprint reference is reported as missing.`,
		Example: `  pbctl validate structure.json
  pbctl validate --versions versions.json --json structure.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := root.loadRegistry()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			sections, err := decodeSections(raw)
			if err != nil {
				return err
			}

			var src validate.VersionSource
			if versionsFile != "" {
				v, err := loadVersions(versionsFile)
				if err != nil {
					return err
				}
				src = v
			}

			res, err := validate.New(reg, src).Validate(cmd.Context(), 0, sections)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(w, res); err != nil {
					return err
				}
			} else if res.Valid {
				fmt.Fprintf(w, "valid: %d sections\n", models.CountSections(sections))
			} else {
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Path", "Code", "Message"})
				for _, e := range res.Errors {
					t.AppendRow(table.Row{e.Path, e.Code, e.Message})
				}
				t.Render()
			}
			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&versionsFile, "versions", "", "JSON array of blueprint versions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile an editor document into flat blocks",
		Long:  `Compile reads an editor document and prints the compiled block list as JSON. Use - to read stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			blocks, err := compiler.CompileJSON(raw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), blocks)
		},
	}
}
