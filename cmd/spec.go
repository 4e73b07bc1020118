package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Duongo16/vtm-apidocs/internal/openapi"
)

func newSpecCmd() *cobra.Command {
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Read, check and reformat OpenAPI specs",
		Long: "Read, check and reformat OpenAPI specs.\n\n" +
			"Commands that take [id] read the spec of that document; pass --file\n" +
			"instead to work on a local file ('-' for stdin).",
	}

	specCmd.AddCommand(newSpecGetCmd())
	specCmd.AddCommand(newSpecPutCmd())
	specCmd.AddCommand(newSpecValidateCmd())
	specCmd.AddCommand(newSpecFormatCmd())
	specCmd.AddCommand(newSpecMinifyCmd())
	specCmd.AddCommand(newSpecConvertCmd())
	specCmd.AddCommand(newSpecFixKeysCmd())
	specCmd.AddCommand(newSpecInitCmd())
	specCmd.AddCommand(newSpecOpsCmd())

	return specCmd
}

// specSource is either a document id argument or a --file flag.
type specSource struct {
	file string
}

func (s *specSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "Local spec file instead of a document id ('-' for stdin)")
}

func (s *specSource) read(cmd *cobra.Command, a *appState, args []string) (string, error) {
	switch {
	case s.file != "" && len(args) > 0:
		return "", fmt.Errorf("pass a document id or --file, not both")
	case s.file != "":
		b, err := readFileArg(cmd, s.file)
		return string(b), err
	case len(args) == 1:
		id, err := parseID(args[0])
		if err != nil {
			return "", err
		}
		return a.docs.GetSpec(cmd.Context(), id)
	default:
		return "", fmt.Errorf("pass a document id or --file")
	}
}

// readDocument reads a spec and requires it to parse.
func (s *specSource) readDocument(cmd *cobra.Command, a *appState, args []string) (*openapi.Map, error) {
	text, err := s.read(cmd, a, args)
	if err != nil {
		return nil, err
	}
	n := openapi.Normalize(text)
	if n.Repaired {
		a.logger.Debug("repaired bare unicode escapes")
	}
	if n.Doc == nil {
		return nil, n.Err
	}
	return n.Doc, nil
}

func newSpecGetCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a document's spec",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text, err := a.docs.GetSpec(cmd.Context(), id)
			if err != nil {
				return err
			}
			if raw {
				return a.printer.PrintText(text)
			}
			n := openapi.Normalize(text)
			if n.Err != nil {
				a.logger.Warn("spec is not JSON; printing it as text", "id", id, "format", n.Format)
			}
			return a.printer.PrintText(n.Text)
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the stored text unchanged")
	return cmd
}

func newSpecPutCmd() *cobra.Command {
	var data string
	var noReindex bool
	cmd := &cobra.Command{
		Use:   "put <id>",
		Short: "Replace a document's spec and reindex it",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if data == "" {
				return fmt.Errorf("--data is required")
			}
			raw, err := readDataArg(cmd, data)
			if err != nil {
				return err
			}
			text := string(raw)
			if n := openapi.Normalize(text); n.Doc != nil {
				printIssues(a, openapi.Validate(n.Doc))
			} else {
				a.logger.Warn("spec is not JSON; storing it as text", "id", id, "format", n.Format)
			}
			if err := a.docs.UpdateSpec(cmd.Context(), id, text); err != nil {
				return err
			}
			if !noReindex {
				if err := a.docs.Reindex(cmd.Context(), id); err != nil {
					return fmt.Errorf("spec saved but reindex failed: %w", err)
				}
			}
			a.printer.Infof("Saved spec %d", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&data, "data", "", "Spec text: '@file.json', '-' for stdin, or inline")
	cmd.Flags().BoolVar(&noReindex, "no-reindex", false, "Skip the endpoint reindex")
	return cmd
}

func printIssues(a *appState, issues []openapi.Issue) {
	for _, i := range issues {
		fmt.Fprintln(a.printer.Err(), i.String())
	}
}

func newSpecValidateCmd() *cobra.Command {
	var src specSource
	cmd := &cobra.Command{
		Use:   "validate [id]",
		Short: "Run the shallow checks the editor runs before saving",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			doc, err := src.readDocument(cmd, a, args)
			if err != nil {
				return err
			}
			issues := openapi.Validate(doc)
			for _, i := range issues {
				fmt.Fprintln(a.printer.Out(), i.String())
			}
			if openapi.HasErrors(issues) {
				return fmt.Errorf("spec has errors")
			}
			if len(issues) == 0 {
				fmt.Fprintln(a.printer.Out(), "ok")
			}
			return nil
		}),
	}
	src.bind(cmd)
	return cmd
}

func newSpecFormatCmd() *cobra.Command {
	var src specSource
	var sortKeys, unescape bool
	cmd := &cobra.Command{
		Use:   "format [id]",
		Short: "Pretty-print a spec",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			doc, err := src.readDocument(cmd, a, args)
			if err != nil {
				return err
			}
			var v any = doc
			if sortKeys {
				v = openapi.SortKeys(doc)
			}
			text := openapi.Text(v)
			if unescape {
				text = openapi.UnescapeText(text)
			}
			return a.printer.PrintText(text)
		}),
	}
	src.bind(cmd)
	cmd.Flags().BoolVar(&sortKeys, "sort-keys", false, "Sort object keys at every level")
	cmd.Flags().BoolVar(&unescape, "unescape", false, "Print <, >, & and / literally")
	return cmd
}

func newSpecMinifyCmd() *cobra.Command {
	var src specSource
	cmd := &cobra.Command{
		Use:   "minify [id]",
		Short: "Print a spec on one line",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			doc, err := src.readDocument(cmd, a, args)
			if err != nil {
				return err
			}
			b, err := openapi.EncodeCompact(doc)
			if err != nil {
				return err
			}
			return a.printer.PrintText(string(b))
		}),
	}
	src.bind(cmd)
	return cmd
}

func newSpecConvertCmd() *cobra.Command {
	var src specSource
	cmd := &cobra.Command{
		Use:   "convert [id]",
		Short: "Convert a YAML spec to JSON, keeping key order",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			text, err := src.read(cmd, a, args)
			if err != nil {
				return err
			}
			if openapi.IsJSON(text) {
				doc, err := openapi.Decode([]byte(text))
				if err != nil {
					return err
				}
				return a.printer.PrintText(openapi.Text(doc))
			}
			doc, err := openapi.FromYAML([]byte(text))
			if err != nil {
				return err
			}
			return a.printer.PrintText(openapi.Text(doc))
		}),
	}
	src.bind(cmd)
	return cmd
}

func newSpecFixKeysCmd() *cobra.Command {
	var src specSource
	cmd := &cobra.Command{
		Use:   "fix-keys [id]",
		Short: "Print a spec with u002f in path and media type keys turned into /",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			doc, err := src.readDocument(cmd, a, args)
			if err != nil {
				return err
			}
			return a.printer.PrintText(openapi.Text(openapi.RepairKeys(doc)))
		}),
	}
	src.bind(cmd)
	return cmd
}

func newSpecInitCmd() *cobra.Command {
	var template, title, version, out string
	var list bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Print or write a starter spec",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if list {
				all, err := openapi.Templates()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(all))
				for _, t := range all {
					rows = append(rows, []string{t.Name, t.Doc.Map("info").String("title"), fmt.Sprint(len(openapi.ListOperations(t.Doc)))})
				}
				return a.printer.PrintTable([]string{"TEMPLATE", "TITLE", "OPERATIONS"}, rows)
			}
			doc, err := openapi.TemplateByName(template)
			if err != nil {
				return err
			}
			if title != "" {
				doc = openapi.SetInfoField(doc, "title", title)
			}
			if version != "" {
				doc = openapi.SetInfoField(doc, "version", version)
			}
			text := openapi.Text(doc) + "\n"
			if out == "" {
				return a.printer.PrintText(text)
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
				return err
			}
			a.printer.Infof("wrote %s", out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&template, "template", "blank", "Starter template (see --list)")
	cmd.Flags().BoolVar(&list, "list", false, "List the starter templates")
	cmd.Flags().StringVar(&title, "title", "", "info.title of the new spec")
	cmd.Flags().StringVar(&version, "version", "", "info.version of the new spec")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newSpecOpsCmd() *cobra.Command {
	var src specSource
	cmd := &cobra.Command{
		Use:   "ops [id]",
		Short: "List the operations of a spec",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			doc, err := src.readDocument(cmd, a, args)
			if err != nil {
				return err
			}
			ops := openapi.ListOperations(doc)
			rows := make([][]string, 0, len(ops))
			for _, op := range ops {
				var tags []string
				for _, t := range op.Operation.Slice("tags") {
					if s, ok := t.(string); ok {
						tags = append(tags, s)
					}
				}
				rows = append(rows, []string{strings.ToUpper(op.Method), op.Path, strings.Join(tags, ","), op.Operation.String("summary")})
			}
			return a.printer.PrintTable([]string{"METHOD", "PATH", "TAGS", "SUMMARY"}, rows)
		}),
	}
	src.bind(cmd)
	return cmd
}
