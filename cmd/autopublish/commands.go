package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	autopublish "github.com/belonio2793/backlinkoo-solar-system-sub002"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/cmd/autopublish/internal/bootstrap"
)

var moduleBuilder = bootstrap.BuildModule

type rootFlags struct {
	configPath string
	driver     string
	dsn        string
	jsonOutput bool
}

type rotationFlags struct {
	strategy string
	pool     []int
	exclude  []int
	maxUse   int
}

func (f *rotationFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Rotation strategy (defaults to the configured strategy)")
	cmd.Flags().IntSliceVar(&f.pool, "pool", nil, "Template ids to rotate through")
	cmd.Flags().IntSliceVar(&f.exclude, "exclude", nil, "Template ids to skip")
	cmd.Flags().IntVar(&f.maxUse, "max-consecutive", 0, "Maximum consecutive uses of one template per site")
}

func (f *rotationFlags) config(base autopublish.RotationConfig) autopublish.RotationConfig {
	cfg := base
	if s := strings.TrimSpace(f.strategy); s != "" {
		cfg.Strategy = autopublish.RotationStrategy(s)
	}
	if len(f.pool) > 0 {
		cfg.TemplatePool = f.pool
	}
	if len(f.exclude) > 0 {
		cfg.ExcludeTemplates = f.exclude
	}
	if f.maxUse > 0 {
		cfg.MaxConsecutiveUse = f.maxUse
	}
	return cfg
}

func newRootCommand(out io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "autopublish",
		Short:         "Publish keyword articles across a network of sites",
		Long:          "Assigns a template per site, generates and formats an article, and publishes it under a unique slug.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&flags.driver, "driver", "", "Storage driver: sqlite or postgres")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Database DSN; enables bun storage")
	root.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		newPublishCommand(flags),
		newRetryCommand(flags),
		newPreviewCommand(flags),
		newSlugCheckCommand(flags),
		newTemplatesCommand(flags),
		newMigrateCommand(flags),
	)
	return root
}

func (f *rootFlags) build(ctx context.Context) (*bootstrap.Module, error) {
	module, err := moduleBuilder(ctx, bootstrap.Options{
		ConfigPath: f.configPath,
		Driver:     f.driver,
		DSN:        f.dsn,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap module: %w", err)
	}
	return module, nil
}

func newPublishCommand(root *rootFlags) *cobra.Command {
	var (
		req         autopublish.BatchRequest
		sites       string
		contentFile string
		rotation    rotationFlags
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one article per site for a campaign",
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := root.build(cmd.Context())
			if err != nil {
				return err
			}
			defer module.Close()

			req.SiteIDs = bootstrap.SplitList(sites)
			req.Rotation = rotation.config(module.Config.Rotation)
			req.URLs = module.Config.URLs
			if contentFile != "" {
				raw, err := os.ReadFile(contentFile)
				if err != nil {
					return fmt.Errorf("read content: %w", err)
				}
				req.Content = string(raw)
			}

			result, err := module.Module.PublishBatch(cmd.Context(), req)
			if result != nil {
				logBatch(module, result)
				if renderErr := renderBatch(cmd.OutOrStdout(), result, root.jsonOutput); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&req.CampaignID, "campaign", "", "Campaign id")
	cmd.Flags().StringVar(&sites, "sites", "", "Comma separated site ids")
	cmd.Flags().StringVar(&req.Keyword, "keyword", "", "Target keyword")
	cmd.Flags().StringVar(&req.TargetURL, "target-url", "", "Backlink target URL")
	cmd.Flags().StringVar(&req.AnchorText, "anchor", "", "Backlink anchor text (defaults to the keyword)")
	cmd.Flags().StringVar(&req.Prompt, "prompt", "", "Extra instructions for the content generator")
	cmd.Flags().StringVar(&req.Title, "title", "", "Article title when supplying content")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Markdown file used instead of generated content")
	rotation.bind(cmd)
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("sites")
	_ = cmd.MarkFlagRequired("keyword")
	_ = cmd.MarkFlagRequired("target-url")
	return cmd
}

func newRetryCommand(root *rootFlags) *cobra.Command {
	var (
		campaign string
		rotation rotationFlags
	)
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Retry the failed entries of a campaign",
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := root.build(cmd.Context())
			if err != nil {
				return err
			}
			defer module.Close()

			result, err := module.Module.RetryFailed(cmd.Context(), autopublish.RetryRequest{
				CampaignID: campaign,
				Rotation:   rotation.config(module.Config.Rotation),
				URLs:       module.Config.URLs,
			})
			if result != nil {
				logBatch(module, result)
				if renderErr := renderBatch(cmd.OutOrStdout(), result, root.jsonOutput); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&campaign, "campaign", "", "Campaign id")
	rotation.bind(cmd)
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func newPreviewCommand(root *rootFlags) *cobra.Command {
	var (
		sites    string
		rotation rotationFlags
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the templates a batch would receive without storing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := root.build(cmd.Context())
			if err != nil {
				return err
			}
			defer module.Close()

			assignments, err := module.Module.PreviewRotation(cmd.Context(), bootstrap.SplitList(sites), rotation.config(module.Config.Rotation))
			if err != nil {
				return err
			}
			if root.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), assignments)
			}
			renderAssignments(cmd.OutOrStdout(), assignments)
			return nil
		},
	}
	cmd.Flags().StringVar(&sites, "sites", "", "Comma separated site ids")
	rotation.bind(cmd)
	_ = cmd.MarkFlagRequired("sites")
	return cmd
}

func newSlugCheckCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "slug-check <title-or-slug>",
		Short: "Check whether a slug is already published on any site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := root.build(cmd.Context())
			if err != nil {
				return err
			}
			defer module.Close()

			availability, err := module.Module.CheckSlug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if root.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), availability)
			}
			renderAvailability(cmd.OutOrStdout(), availability)
			return nil
		},
	}
}

func newTemplatesCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the template catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := root.build(cmd.Context())
			if err != nil {
				return err
			}
			defer module.Close()

			catalog := module.Module.Templates()
			if root.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), catalog)
			}
			renderTemplates(cmd.OutOrStdout(), catalog)
			return nil
		},
	}
}

func newMigrateCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig(bootstrap.Options{
				ConfigPath: root.configPath,
				Driver:     root.driver,
				DSN:        root.dsn,
			})
			if err != nil {
				return err
			}
			if !strings.EqualFold(cfg.Storage.Provider, "bun") {
				return fmt.Errorf("migrate requires bun storage; pass --dsn or set storage.provider")
			}
			db, err := bootstrap.OpenDB(cfg.Storage.Driver, cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := autopublish.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("database is up to date"))
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("applied"), name)
			}
			return nil
		},
	}
}

func logBatch(module *bootstrap.Module, result *autopublish.BatchResult) {
	module.Logger.Info("cli.batch.completed",
		"campaign_id", result.CampaignID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
