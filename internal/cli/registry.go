package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pagebuilder/internal/registry"
)

// registryDump mirrors the catalog file layout so yaml output can be fed
// back through --registry.
type registryDump struct {
	Limits       registry.Limits          `json:"limits" yaml:"limits"`
	SectionTypes []registry.SectionType   `json:"section_types" yaml:"section_types"`
	Components   []registry.ComponentType `json:"components" yaml:"components"`
	Breakpoints  []registry.Breakpoint    `json:"breakpoints" yaml:"breakpoints"`
	Presets      []registry.LayoutPreset  `json:"presets" yaml:"presets"`
}

func newRegistryCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Show the component and section types, breakpoints and presets",
		Example: `  pbctl registry
  pbctl registry --registry custom.yaml --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := root.loadRegistry()
			if err != nil {
				return err
			}
			dump := registryDump{
				Limits:       reg.Limits(),
				SectionTypes: reg.SectionTypes(),
				Components:   reg.ComponentTypes(),
				Breakpoints:  reg.Breakpoints(),
				Presets:      reg.Presets(),
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				return printJSON(w, dump)
			case "yaml":
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(dump); err != nil {
					return err
				}
				return enc.Close()
			case "table":
			default:
				return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
			}

			limits := table.NewWriter()
			limits.SetOutputMirror(w)
			limits.SetStyle(table.StyleLight)
			limits.SetTitle("Limits")
			limits.AppendRows([]table.Row{
				{"max depth", dump.Limits.MaxDepth},
				{"max components per section", dump.Limits.MaxComponentsPerSection},
				{"max sections per template", dump.Limits.MaxSectionsPerTemplate},
			})
			limits.Render()

			sections := table.NewWriter()
			sections.SetOutputMirror(w)
			sections.SetStyle(table.StyleLight)
			sections.SetTitle("Section types")
			sections.AppendHeader(table.Row{"Type", "Label", "Nesting", "Max depth"})
			for _, s := range dump.SectionTypes {
				depth := "-"
				if s.MaxDepth > 0 {
					depth = fmt.Sprint(s.MaxDepth)
				}
				sections.AppendRow(table.Row{s.Type, s.Label, s.SupportsNesting, depth})
			}
			sections.Render()

			components := table.NewWriter()
			components.SetOutputMirror(w)
			components.SetStyle(table.StyleLight)
			components.SetTitle("Component types")
			components.AppendHeader(table.Row{"Type", "Label", "Category", "Blueprint", "Fields"})
			for _, c := range dump.Components {
				names := make([]string, len(c.Fields))
				for i, f := range c.Fields {
					names[i] = f.Name
				}
				bp := c.BlueprintType
				if c.IsLayout() {
					bp = "(layout)"
				}
				components.AppendRow(table.Row{c.Type, c.Label, c.Category, bp, strings.Join(names, ", ")})
			}
			components.Render()

			if len(dump.Breakpoints) > 0 {
				bps := table.NewWriter()
				bps.SetOutputMirror(w)
				bps.SetStyle(table.StyleLight)
				bps.SetTitle("Breakpoints")
				bps.AppendHeader(table.Row{"Name", "Label", "Width"})
				for _, bp := range dump.Breakpoints {
					bps.AppendRow(table.Row{bp.Name, bp.Label, bp.Width})
				}
				bps.Render()
			}

			if len(dump.Presets) > 0 {
				presets := table.NewWriter()
				presets.SetOutputMirror(w)
				presets.SetStyle(table.StyleLight)
				presets.SetTitle("Layout presets")
				presets.AppendHeader(table.Row{"Name", "Label", "Description"})
				for _, p := range dump.Presets {
					presets.AppendRow(table.Row{p.Name, p.Label, p.Description})
				}
				presets.Render()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}
