package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Duongo16/vtm-apidocs/internal/admin"
	"github.com/Duongo16/vtm-apidocs/internal/openapi"
)

const defaultJobs = 4

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage API documents",
	}
	cmd.AddCommand(newDocsListCmd())
	cmd.AddCommand(newDocsShowCmd())
	cmd.AddCommand(newDocsEndpointsCmd())
	cmd.AddCommand(newDocsCategoriesCmd())
	cmd.AddCommand(newDocsStatusCmd())
	cmd.AddCommand(newDocsMetaCmd())
	cmd.AddCommand(newDocsDeleteCmd())
	cmd.AddCommand(newDocsImportCmd())
	cmd.AddCommand(newDocsReindexCmd())
	cmd.AddCommand(newDocsExportCmd())
	return cmd
}

func newDocsListCmd() *cobra.Command {
	var query string
	var asJSON bool
	state := newEnum(admin.DocStatuses, "")
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search documents",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			docs, err := a.docs.List(cmd.Context(), query, admin.DocStatus(state.String()))
			if err != nil {
				return err
			}
			if asJSON {
				return a.printer.PrintJSON(docs)
			}
			rows := make([][]string, 0, len(docs))
			for _, d := range docs {
				category := ""
				if d.Category != nil {
					category = d.Category.Name
				}
				rows = append(rows, []string{
					strconv.FormatInt(d.ID, 10), d.Name, d.Slug, d.Version, string(d.Status), category, d.UpdatedAt.String(),
				})
			}
			return a.printer.PrintTable([]string{"ID", "NAME", "SLUG", "VERSION", "STATUS", "CATEGORY", "UPDATED"}, rows)
		}),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search name, slug, version or description")
	cmd.Flags().Var(state, "state", "Only this status: "+strings.Join(admin.DocStatuses, ", "))
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newDocsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			doc, err := a.docs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printer.PrintJSON(doc)
		}),
	}
}

func newDocsEndpointsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "endpoints <id>",
		Short: "List the indexed operations of a document",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			eps, err := a.docs.Endpoints(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printer.PrintJSON(eps)
			}
			rows := make([][]string, 0, len(eps))
			for _, e := range eps {
				summary := e.Summary
				if e.Deprecated {
					summary = "(deprecated) " + summary
				}
				rows = append(rows, []string{strings.ToUpper(e.Method), e.Path, e.OperationID, strings.Join(e.Tags(), ","), summary})
			}
			return a.printer.PrintTable([]string{"METHOD", "PATH", "OPERATION", "TAGS", "SUMMARY"}, rows)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newDocsCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List document categories",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			cats, err := a.docs.Categories(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, c.Slug})
			}
			return a.printer.PrintTable([]string{"ID", "NAME", "SLUG"}, rows)
		}),
	}
}

func newDocsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "status <id> <" + strings.Join(admin.DocStatuses, "|") + ">",
		Short:     "Publish, archive or return a document to draft",
		Args:      cobra.ExactArgs(2),
		ValidArgs: admin.DocStatuses,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			want := newEnum(admin.DocStatuses, "")
			if err := want.Set(args[1]); err != nil {
				return fmt.Errorf("invalid status %q: %w", args[1], err)
			}
			got, err := a.docs.SetStatus(cmd.Context(), id, admin.DocStatus(want.String()))
			if err != nil {
				return err
			}
			a.printer.Infof("Document %d is now %s", id, got)
			return nil
		}),
	}
}

func newDocsMetaCmd() *cobra.Command {
	var meta admin.Meta
	cmd := &cobra.Command{
		Use:   "meta <id>",
		Short: "Change name, slug, version or description; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cur, err := a.docs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			next := admin.MetaOf(cur)
			flags := cmd.Flags()
			if flags.Changed("name") {
				next.Name = strings.TrimSpace(meta.Name)
			}
			if flags.Changed("slug") {
				next.Slug = strings.TrimSpace(meta.Slug)
			}
			if flags.Changed("version") {
				next.Version = strings.TrimSpace(meta.Version)
			}
			if flags.Changed("description") {
				next.Description = meta.Description
			}
			if next.Name == "" || next.Slug == "" {
				return fmt.Errorf("name and slug must not be empty")
			}
			if next.Version != "" && !openapi.IsSemver(next.Version) {
				a.logger.Warn("version is not a semantic version", "version", next.Version)
			}
			doc, err := a.docs.UpdateMeta(cmd.Context(), id, next)
			if err != nil {
				return err
			}
			return a.printer.PrintJSON(doc)
		}),
	}
	cmd.Flags().StringVar(&meta.Name, "name", "", "Document name")
	cmd.Flags().StringVar(&meta.Slug, "slug", "", "URL slug")
	cmd.Flags().StringVar(&meta.Version, "version", "", "Document version")
	cmd.Flags().StringVar(&meta.Description, "description", "", "Description")
	return cmd
}

func newDocsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its spec",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete document %d without --yes", id)
			}
			if err := a.docs.Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.printer.Infof("Deleted document %d", id)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func newDocsImportCmd() *cobra.Command {
	var req admin.ImportRequest
	var file, pdf string
	var toJSON bool
	provider := newEnum(admin.Providers, string(admin.ProviderOpenRouter))
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create or update a document from a JSON/YAML spec or a PDF",
		Long: "Create or update a document from a JSON/YAML spec or a PDF.\n\n" +
			"The slug defaults to the name in kebab case. Importing an existing slug\n" +
			"updates that document. PDF imports are converted server-side and give up\n" +
			"after the configured import_timeout.",
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if (file == "") == (pdf == "") {
				return fmt.Errorf("exactly one of --file or --pdf is required")
			}
			if strings.TrimSpace(req.Slug) == "" {
				req.Slug = slugify(req.Name)
			}
			if req.Version != "" && !openapi.IsSemver(req.Version) {
				a.logger.Warn("version is not a semantic version", "version", req.Version)
			}

			var res *admin.ImportResult
			if pdf != "" {
				f, err := os.Open(pdf)
				if err != nil {
					return err
				}
				defer f.Close()
				a.printer.Infof("Uploading %s; conversion can take up to %s", filepath.Base(pdf), a.docs.ImportTimeout)
				res, err = a.docs.ImportPDF(cmd.Context(), req, filepath.Base(pdf), f, admin.Provider(provider.String()))
				if err != nil {
					return err
				}
			} else {
				data, err := readFileArg(cmd, file)
				if err != nil {
					return err
				}
				text := string(data)
				if toJSON && !openapi.IsJSON(text) {
					doc, err := openapi.FromYAML(data)
					if err != nil {
						return fmt.Errorf("convert %s to JSON: %w", file, err)
					}
					text = openapi.Text(doc)
				}
				res, err = a.docs.ImportSpec(cmd.Context(), req, text)
				if err != nil {
					return err
				}
			}
			res.SpecText = ""
			return a.printer.PrintJSON(res)
		}),
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Document name (required)")
	cmd.Flags().StringVar(&req.Slug, "slug", "", "URL slug (default: derived from --name)")
	cmd.Flags().StringVar(&req.Version, "version", admin.DefaultImportVersion, "Document version")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().Int64Var(&req.CategoryID, "category", 0, "Category id")
	cmd.Flags().StringVar(&file, "file", "", "JSON or YAML spec file ('-' for stdin)")
	cmd.Flags().StringVar(&pdf, "pdf", "", "PDF file to convert")
	cmd.Flags().Var(provider, "provider", "PDF conversion provider: "+strings.Join(admin.Providers, ", "))
	cmd.Flags().BoolVar(&toJSON, "to-json", false, "Convert a YAML spec to JSON before uploading")
	return cmd
}

func newDocsReindexCmd() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "reindex <id>...",
		Short: "Rebuild the endpoint index of one or more documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			done := make([]bool, len(ids))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for i, id := range ids {
				i, id := i, id
				g.Go(func() error {
					if err := a.docs.Reindex(ctx, id); err != nil {
						return fmt.Errorf("reindex %d: %w", id, err)
					}
					done[i] = true
					return nil
				})
			}
			err = g.Wait()
			for i, id := range ids {
				if done[i] {
					a.printer.Infof("Reindexed %d", id)
				}
			}
			return err
		}),
	}
	cmd.Flags().IntVar(&jobs, "jobs", defaultJobs, "Documents processed at once")
	return cmd
}

func newDocsExportCmd() *cobra.Command {
	var dir, query string
	var all, raw bool
	var jobs int
	cmd := &cobra.Command{
		Use:   "export [id...]",
		Short: "Download specs into a directory",
		RunE: runE(func(cmd *cobra.Command, a *appState, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass document ids or --all, not both")
			}
			targets, err := exportTargets(cmd, a, args, all, query)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			var mu sync.Mutex
			var written []string
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for _, t := range targets {
				t := t
				g.Go(func() error {
					text, err := a.docs.GetSpec(ctx, t.ID)
					if err != nil {
						return fmt.Errorf("export %d: %w", t.ID, err)
					}
					ext := ".json"
					if !raw {
						n := openapi.Normalize(text)
						text = n.Text
						if n.Doc == nil && n.Format == openapi.FormatYAML {
							ext = ".yaml"
						}
					}
					path := filepath.Join(dir, exportName(t)+ext)
					if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
						return err
					}
					mu.Lock()
					written = append(written, path)
					mu.Unlock()
					return nil
				})
			}
			err = g.Wait()
			for _, p := range written {
				a.printer.Infof("wrote %s", p)
			}
			return err
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory")
	cmd.Flags().BoolVar(&all, "all", false, "Export every document matching --query")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search used with --all")
	cmd.Flags().BoolVar(&raw, "raw", false, "Write the stored text without normalizing it")
	cmd.Flags().IntVar(&jobs, "jobs", defaultJobs, "Downloads at once")
	return cmd
}

func exportTargets(cmd *cobra.Command, a *appState, args []string, all bool, query string) ([]admin.Document, error) {
	if all {
		return a.docs.List(cmd.Context(), query, "")
	}
	ids, err := parseIDs(args)
	if err != nil {
		return nil, err
	}
	out := make([]admin.Document, len(ids))
	for i, id := range ids {
		out[i] = admin.Document{ID: id}
	}
	return out, nil
}

// exportName is <slug>-<version>, or the id when the slug is unknown.
func exportName(d admin.Document) string {
	if d.Slug == "" {
		return strconv.FormatInt(d.ID, 10)
	}
	if d.Version == "" {
		return d.Slug
	}
	return d.Slug + "-" + d.Version
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
