package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Duongo16/vtm-apidocs/internal/editor"
	"github.com/Duongo16/vtm-apidocs/internal/openapi"
)

const defaultMediaType = "application/json"

type editOptions struct {
	id     int64
	file   string
	dryRun bool
}

// editFunc transforms the open document. Returning the document unchanged
// means there is nothing to save.
type editFunc func(doc *openapi.Map) (*openapi.Map, error)

func newEditCmd() *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply one structured change to a spec and save it",
		Long: "Apply one structured change to a spec and save it.\n\n" +
			"The spec is loaded from a document (--id) or a local file (--file),\n" +
			"changed, checked, and written back; documents are reindexed after the\n" +
			"save. With --dry-run the resulting spec is printed instead.",
	}
	pf := cmd.PersistentFlags()
	pf.Int64Var(&opts.id, "id", 0, "Document id")
	pf.StringVar(&opts.file, "file", "", "Local spec file")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "Print the result instead of saving it")

	cmd.AddCommand(newEditInfoCmd(&opts))
	cmd.AddCommand(newEditServerCmd(&opts))
	cmd.AddCommand(newEditTagCmd(&opts))
	cmd.AddCommand(newEditOpCmd(&opts))
	cmd.AddCommand(newEditPropCmd(&opts))
	cmd.AddCommand(newEditResponseCmd(&opts))
	cmd.AddCommand(newEditFixKeysCmd(&opts))
	cmd.AddCommand(newEditReplaceCmd(&opts))
	return cmd
}

// open starts an editor session on the selected document.
func (o *editOptions) open(cmd *cobra.Command, a *appState) (*editor.Session, string, error) {
	var store editor.Store
	var label string
	switch {
	case o.file != "" && o.id != 0:
		return nil, "", fmt.Errorf("pass --id or --file, not both")
	case o.file != "":
		store, label = editor.FileStore{Path: o.file}, o.file
	case o.id > 0:
		store, label = a.docs, fmt.Sprintf("spec %d", o.id)
	default:
		return nil, "", fmt.Errorf("pass --id or --file")
	}
	s := editor.New(store, a.logger)
	if err := s.Open(cmd.Context(), o.id); err != nil {
		return nil, "", err
	}
	return s, label, nil
}

// run opens the document, applies fn, and saves the result.
func (o *editOptions) run(cmd *cobra.Command, a *appState, fn editFunc) error {
	s, label, err := o.open(cmd, a)
	if err != nil {
		return err
	}
	var fnErr error
	err = s.Apply(func(doc *openapi.Map) *openapi.Map {
		next, err := fn(doc)
		if err != nil {
			fnErr = err
			return nil
		}
		return next
	})
	if errors.Is(err, editor.ErrRawMode) {
		return fmt.Errorf("%w: %v", err, s.ParseErr())
	}
	if err != nil {
		return err
	}
	if fnErr != nil {
		return fnErr
	}
	return o.finish(cmd, a, s, label)
}

func (o *editOptions) finish(cmd *cobra.Command, a *appState, s *editor.Session, label string) error {
	printIssues(a, s.Issues())
	if o.dryRun {
		return a.printer.PrintText(s.Text())
	}
	if !s.Dirty() {
		a.printer.Infof("No changes to %s", label)
		return nil
	}
	if err := s.Save(cmd.Context()); err != nil {
		return err
	}
	a.printer.Infof("Saved %s", label)
	return nil
}

// changedString returns &value when the flag was given, so an explicit empty
// value can be told apart from an unset flag.
func changedString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func lowerMethod(m string) (string, error) {
	m = strings.ToLower(strings.TrimSpace(m))
	if !openapi.IsMethod(m) {
		return "", fmt.Errorf("invalid method %q (expected one of %s)", m, strings.Join(openapi.Methods, ", "))
	}
	return m, nil
}

// pathMethod parses the leading <path> <method> arguments.
func pathMethod(args []string) (string, string, error) {
	method, err := lowerMethod(args[1])
	if err != nil {
		return "", "", err
	}
	return args[0], method, nil
}

func requireOperation(doc *openapi.Map, path, method string) (*openapi.Map, error) {
	op, ok := openapi.FindOperation(doc, path, method)
	if !ok || op == nil {
		return nil, fmt.Errorf("no operation %s %s", strings.ToUpper(method), path)
	}
	return op, nil
}

func newEditInfoCmd(o *editOptions) *cobra.Command {
	var title, version, description string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Set info.title, info.version or info.description",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				flags := cmd.Flags()
				if flags.Changed("title") {
					doc = openapi.SetInfoField(doc, "title", title)
				}
				if flags.Changed("version") {
					doc = openapi.SetInfoField(doc, "version", version)
				}
				if flags.Changed("description") {
					doc = openapi.SetInfoField(doc, "description", description)
				}
				return doc, nil
			})
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "API title")
	cmd.Flags().StringVar(&version, "version", "", "API version")
	cmd.Flags().StringVar(&description, "description", "", "API description")
	return cmd
}

func newEditServerCmd(o *editOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Add, change or remove servers",
	}
	cmd.PersistentFlags().StringVar(&description, "description", "", "Server description")

	cmd.AddCommand(&cobra.Command{
		Use:   "add [url]",
		Short: "Append a server (default " + openapi.DefaultServerURL + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				return openapi.AddServer(doc, url, description), nil
			})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "update <index> <url>",
		Short: "Change the server at index",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				if i >= len(doc.Slice("servers")) {
					return nil, fmt.Errorf("no server at index %d", i)
				}
				return openapi.UpdateServer(doc, i, args[1], changedString(cmd, "description", description)), nil
			})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the server at index",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				if i >= len(doc.Slice("servers")) {
					return nil, fmt.Errorf("no server at index %d", i)
				}
				return openapi.RemoveServer(doc, i), nil
			})
		}),
	})
	return cmd
}

func newEditTagCmd(o *editOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add, change or remove tags",
	}
	cmd.PersistentFlags().StringVar(&description, "description", "", "Tag description")

	cmd.AddCommand(&cobra.Command{
		Use:   "add [name]",
		Short: "Append a tag (default " + openapi.DefaultTagName + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				return openapi.AddTag(doc, name, description), nil
			})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "update <index> <name>",
		Short: "Change the tag at index",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				if i >= len(doc.Slice("tags")) {
					return nil, fmt.Errorf("no tag at index %d", i)
				}
				return openapi.UpdateTag(doc, i, args[1], changedString(cmd, "description", description)), nil
			})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the tag at index",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				if i >= len(doc.Slice("tags")) {
					return nil, fmt.Errorf("no tag at index %d", i)
				}
				return openapi.RemoveTag(doc, i), nil
			})
		}),
	})
	return cmd
}

func newEditOpCmd(o *editOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "op",
		Short: "Add, move, change or delete operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <path> <method>",
		Short: "Add an empty operation unless one exists",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			path, method, err := pathMethod(args)
			if err != nil {
				return err
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				return openapi.AddOperation(doc, path, method), nil
			})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <path> <method>",
		Short: "Delete an operation; a path left without methods is removed",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			path, method, err := pathMethod(args)
			if err != nil {
				return err
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				if _, err := requireOperation(doc, path, method); err != nil {
					return nil, err
				}
				return openapi.DeleteOperation(doc, path, method), nil
			})
		}),
	})

	var toPath, toMethod string
	move := &cobra.Command{
		Use:   "move <path> <method>",
		Short: "Move an operation to another path or method, replacing what is there",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			path, method, err := pathMethod(args)
			if err != nil {
				return err
			}
			if (toPath == "") == (toMethod == "") {
				return fmt.Errorf("exactly one of --to-path or --to-method is required")
			}
			if toMethod != "" {
				if toMethod, err = lowerMethod(toMethod); err != nil {
					return err
				}
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				if _, err := requireOperation(doc, path, method); err != nil {
					return nil, err
				}
				if toMethod != "" {
					return openapi.MoveMethod(doc, path, method, toMethod), nil
				}
				return openapi.MovePath(doc, path, toPath, method), nil
			})
		}),
	}
	move.Flags().StringVar(&toPath, "to-path", "", "New path")
	move.Flags().StringVar(&toMethod, "to-method", "", "New method")
	cmd.AddCommand(move)

	var summary, description, operationID, tags string
	var deprecated bool
	set := &cobra.Command{
		Use:   "set <path> <method>",
		Short: "Set summary, description, operationId, tags or deprecated",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			path, method, err := pathMethod(args)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			patch := openapi.NewMap()
			if flags.Changed("summary") {
				patch = patch.With("summary", summary)
			}
			if flags.Changed("description") {
				patch = patch.With("description", description)
			}
			if flags.Changed("operation-id") {
				patch = patch.With("operationId", operationID)
			}
			if flags.Changed("tags") {
				patch = patch.With("tags", openapi.SplitTags(tags))
			}
			if flags.Changed("deprecated") {
				patch = patch.With("deprecated", deprecated)
			}
			if patch.Len() == 0 {
				return fmt.Errorf("nothing to set")
			}
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				return openapi.PatchOperation(doc, path, method, patch), nil
			})
		}),
	}
	set.Flags().StringVar(&summary, "summary", "", "Summary")
	set.Flags().StringVar(&description, "description", "", "Description")
	set.Flags().StringVar(&operationID, "operation-id", "", "operationId")
	set.Flags().StringVar(&tags, "tags", "", "Comma separated tags")
	set.Flags().BoolVar(&deprecated, "deprecated", false, "Mark deprecated")
	cmd.AddCommand(set)
	return cmd
}

func newEditPropCmd(o *editOptions) *cobra.Command {
	var media string
	cmd := &cobra.Command{
		Use:   "prop",
		Short: "Edit the properties of an operation's request body schema",
	}
	cmd.PersistentFlags().StringVar(&media, "media", defaultMediaType, "Request body media type")

	// body applies fn to the body schema of the operation named by args.
	body := func(cmd *cobra.Command, a *appState, args []string, fn func(schema *openapi.Map) (*openapi.Map, error)) error {
		path, method, err := pathMethod(args)
		if err != nil {
			return err
		}
		return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
			op, err := requireOperation(doc, path, method)
			if err != nil {
				return nil, err
			}
			schema := openapi.OperationBodySchema(op, media)
			next, err := fn(schema)
			if err != nil || next == schema {
				return doc, err
			}
			return openapi.SetOperation(doc, path, method, func(op *openapi.Map) *openapi.Map {
				return openapi.SetOperationBodySchema(op, media, next)
			}), nil
		})
	}
	has := func(schema *openapi.Map, name string) error {
		if !schema.Map("properties").Has(name) {
			return fmt.Errorf("no property %q", name)
		}
		return nil
	}

	var typ string
	add := &cobra.Command{
		Use:   "add <path> <method> [name]",
		Short: "Add a property; taken names get a numeric suffix",
		Args:  cobra.RangeArgs(2, 3),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if typ != "" && !contains(openapi.PropertyTypes, typ) {
				return fmt.Errorf("invalid type %q (expected one of %s)", typ, strings.Join(openapi.PropertyTypes, ", "))
			}
			return body(cmd, a, args, func(schema *openapi.Map) (*openapi.Map, error) {
				next := openapi.AddProperty(schema)
				keys := next.Map("properties").Keys()
				added := keys[len(keys)-1]
				if len(args) == 3 {
					next = openapi.RenameProperty(next, added, args[2])
					keys = next.Map("properties").Keys()
					added = keys[len(keys)-1]
				}
				if typ != "" {
					next = openapi.RetypeProperty(next, added, typ)
				}
				return next, nil
			})
		}),
	}
	add.Flags().StringVar(&typ, "type", "", "Property type: "+strings.Join(openapi.PropertyTypes, ", "))
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <path> <method> <name> <new-name>",
		Short: "Rename a property; the required list follows",
		Args:  cobra.ExactArgs(4),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return body(cmd, a, args, func(schema *openapi.Map) (*openapi.Map, error) {
				if err := has(schema, args[2]); err != nil {
					return nil, err
				}
				return openapi.RenameProperty(schema, args[2], args[3]), nil
			})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "retype <path> <method> <name> <type>",
		Short: "Change a property's type",
		Args:  cobra.ExactArgs(4),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if !contains(openapi.PropertyTypes, args[3]) {
				return fmt.Errorf("invalid type %q (expected one of %s)", args[3], strings.Join(openapi.PropertyTypes, ", "))
			}
			return body(cmd, a, args, func(schema *openapi.Map) (*openapi.Map, error) {
				if err := has(schema, args[2]); err != nil {
					return nil, err
				}
				return openapi.RetypeProperty(schema, args[2], args[3]), nil
			})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "describe <path> <method> <name> <description>",
		Short: "Set a property's description",
		Args:  cobra.ExactArgs(4),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return body(cmd, a, args, func(schema *openapi.Map) (*openapi.Map, error) {
				if err := has(schema, args[2]); err != nil {
					return nil, err
				}
				return openapi.SetPropertyDescription(schema, args[2], args[3]), nil
			})
		}),
	})

	var optional bool
	require := &cobra.Command{
		Use:   "require <path> <method> <name>",
		Short: "Mark a property required (or optional with --off)",
		Args:  cobra.ExactArgs(3),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return body(cmd, a, args, func(schema *openapi.Map) (*openapi.Map, error) {
				if err := has(schema, args[2]); err != nil {
					return nil, err
				}
				return openapi.ToggleRequired(schema, args[2], !optional), nil
			})
		}),
	}
	require.Flags().BoolVar(&optional, "off", false, "Make the property optional")
	cmd.AddCommand(require)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <path> <method> <name>",
		Short: "Delete a property and its required entry",
		Args:  cobra.ExactArgs(3),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return body(cmd, a, args, func(schema *openapi.Map) (*openapi.Map, error) {
				if err := has(schema, args[2]); err != nil {
					return nil, err
				}
				return openapi.DeleteProperty(schema, args[2]), nil
			})
		}),
	})
	return cmd
}

func newEditResponseCmd(o *editOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Edit the responses of an operation",
	}

	// responses applies fn to the response rows of the operation named by
	// args.
	responses := func(cmd *cobra.Command, a *appState, args []string, fn func(rows openapi.Pairs) (openapi.Pairs, error)) error {
		path, method, err := pathMethod(args)
		if err != nil {
			return err
		}
		return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
			op, err := requireOperation(doc, path, method)
			if err != nil {
				return nil, err
			}
			rows, err := fn(openapi.ResponsePairs(op.Map("responses")))
			if err != nil {
				return nil, err
			}
			return openapi.CommitResponses(doc, path, method, rows), nil
		})
	}

	var code, description string
	add := &cobra.Command{
		Use:   "add <path> <method>",
		Short: "Add a response; an existing status code is refused",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return responses(cmd, a, args, func(rows openapi.Pairs) (openapi.Pairs, error) {
				if rows.Index(code) >= 0 {
					return nil, fmt.Errorf("response %s already exists", code)
				}
				rows = openapi.AddResponse(rows)
				rows = rows.RenameAt(len(rows)-1, code)
				if cmd.Flags().Changed("description") {
					rows = openapi.EditResponse(rows, code, openapi.MapOf("description", description))
				}
				return rows, nil
			})
		}),
	}
	add.Flags().StringVar(&code, "code", "200", "Status code")
	add.Flags().StringVar(&description, "description", "OK", "Response description")
	cmd.AddCommand(add)

	var setDescription string
	set := &cobra.Command{
		Use:   "set <path> <method> <code>",
		Short: "Change a response's description",
		Args:  cobra.ExactArgs(3),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return responses(cmd, a, args, func(rows openapi.Pairs) (openapi.Pairs, error) {
				if rows.Index(args[2]) < 0 {
					return nil, fmt.Errorf("no response %s", args[2])
				}
				return openapi.EditResponse(rows, args[2], openapi.MapOf("description", setDescription)), nil
			})
		}),
	}
	set.Flags().StringVar(&setDescription, "description", "", "Response description")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <path> <method> <code> <new-code>",
		Short: "Change a response's status code",
		Args:  cobra.ExactArgs(4),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return responses(cmd, a, args, func(rows openapi.Pairs) (openapi.Pairs, error) {
				if rows.Index(args[2]) < 0 {
					return nil, fmt.Errorf("no response %s", args[2])
				}
				if args[3] != args[2] && rows.Index(args[3]) >= 0 {
					return nil, fmt.Errorf("response %s already exists", args[3])
				}
				return openapi.RenameResponseCode(rows, args[2], args[3]), nil
			})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <path> <method> <code>",
		Short: "Delete a response",
		Args:  cobra.ExactArgs(3),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return responses(cmd, a, args, func(rows openapi.Pairs) (openapi.Pairs, error) {
				if rows.Index(args[2]) < 0 {
					return nil, fmt.Errorf("no response %s", args[2])
				}
				return openapi.DeleteResponse(rows, args[2]), nil
			})
		}),
	})
	return cmd
}

func newEditFixKeysCmd(o *editOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-keys",
		Short: "Turn u002f in path and media type keys into /",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			return o.run(cmd, a, func(doc *openapi.Map) (*openapi.Map, error) {
				return openapi.RepairKeys(doc), nil
			})
		}),
	}
}

func newEditReplaceCmd(o *editOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Replace the whole spec text, even when it is not valid JSON",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if data == "" {
				return fmt.Errorf("--data is required")
			}
			raw, err := readDataArg(cmd, data)
			if err != nil {
				return err
			}
			s, label, err := o.open(cmd, a)
			if err != nil {
				return err
			}
			if err := s.SetText(string(raw)); err != nil {
				return err
			}
			if s.Doc() == nil {
				a.logger.Warn("new text is not JSON; it will be stored as text", "err", s.ParseErr())
			}
			return o.finish(cmd, a, s, label)
		}),
	}
	cmd.Flags().StringVar(&data, "data", "", "Spec text: '@file.json', '-' for stdin, or inline")
	return cmd
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
