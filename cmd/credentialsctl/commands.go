package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/MacJediWizard/learning-credentials/internal/config"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newCatalogCmd(a *app, connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Import or export credential types and configurations as YAML",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Create or update the types and configurations declared in a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := config.LoadCatalog(args[0])
			if err != nil {
				return err
			}
			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			res, err := a.svc.ImportCatalog(ctx, catalog)
			if err != nil {
				return err
			}
			fmt.Printf("Credential types: %d created, %d updated\n", res.TypesCreated, res.TypesUpdated)
			fmt.Printf("Configurations:   %d created, %d updated\n", res.ConfigsCreated, res.ConfigsUpdated)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write the persisted types and configurations to a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			catalog, err := a.svc.ExportCatalog(ctx)
			if err != nil {
				return err
			}
			if err := catalog.Save(args[0]); err != nil {
				return err
			}
			fmt.Printf("Exported %d credential types and %d configurations to %s\n",
				len(catalog.CredentialTypes), len(catalog.Configurations), args[0])
			return nil
		},
	})

	return cmd
}

func newConfigsCmd(a *app, connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage credential configurations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List credential configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			configs, err := a.svc.ListConfigurations(ctx)
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Println("No credential configurations")
				return nil
			}
			sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
			fmt.Printf("%-6s %-8s %-30s %s\n", "ID", "ENABLED", "TYPE", "LEARNING CONTEXT")
			for _, c := range configs {
				typeName := strconv.FormatInt(c.CredentialTypeID, 10)
				if c.CredentialType != nil {
					typeName = c.CredentialType.Name
				}
				fmt.Printf("%-6d %-8t %-30s %s\n", c.ID, c.Enabled, typeName, c.LearningContextKey)
			}
			return nil
		},
	})

	for _, enabled := range []bool{true, false} {
		use, short := "enable <id>", "Enable the periodic task of a configuration"
		if !enabled {
			use, short = "disable <id>", "Disable the periodic task of a configuration"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ctx, done, err := connect(cmd)
				if err != nil {
					return err
				}
				defer done()

				cfg, err := a.svc.SetConfigurationEnabled(ctx, id, enabled)
				if err != nil {
					return err
				}
				fmt.Printf("%s: enabled=%t\n", cfg, cfg.Enabled)
				return nil
			},
		})
	}

	return cmd
}

func newGenerateCmd(a *app, connect connectFunc) *cobra.Command {
	var configID, userID int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Enqueue credential generation",
		Long: `Enqueue credential generation for every enabled configuration, for one
configuration (--config), or for one user of a configuration (--config and --user).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID != 0 && configID == 0 {
				return fmt.Errorf("--user requires --config")
			}
			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			var job *models.Job
			switch {
			case userID != 0:
				job, err = a.svc.EnqueueUserGeneration(ctx, configID, userID)
			case configID != 0:
				job, err = a.svc.EnqueueConfigurationGeneration(ctx, configID)
			default:
				job, err = a.svc.EnqueueAllGeneration(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Enqueued %s job %s\n", job.JobType, job.ID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&configID, "config", 0, "Credential configuration ID")
	cmd.Flags().Int64Var(&userID, "user", 0, "LMS user ID (requires --config)")
	return cmd
}

func newCredentialsCmd(a *app, connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Invalidate or reissue issued credentials",
	}

	var invalidateReason string
	invalidate := &cobra.Command{
		Use:   "invalidate <uuid>",
		Short: "Invalidate a credential and remove its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid credential UUID: %w", err)
			}
			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			c, err := a.svc.InvalidateCredential(ctx, id, invalidateReason)
			if err != nil {
				return err
			}
			fmt.Printf("Credential %s is %s\n", c.UUID, c.Status)
			return nil
		},
	}
	invalidate.Flags().StringVar(&invalidateReason, "reason", "", "Invalidation reason (required)")
	_ = invalidate.MarkFlagRequired("reason")

	var reissueReason string
	reissue := &cobra.Command{
		Use:   "reissue <uuid>",
		Short: "Invalidate a credential and generate a replacement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid credential UUID: %w", err)
			}
			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			c, err := a.svc.GetCredential(ctx, id)
			if err != nil {
				return err
			}
			fresh, err := a.svc.Reissue(ctx, c, reissueReason)
			if err != nil {
				return err
			}
			fmt.Printf("Credential %s reissued as %s (%s)\n", c.UUID, fresh.UUID, fresh.Status)
			return nil
		},
	}
	reissue.Flags().StringVar(&reissueReason, "reason", "", "Invalidation reason (default: "+models.DefaultReissueReason+")")

	cmd.AddCommand(invalidate, reissue)
	return cmd
}

func newAssetsCmd(a *app, connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage credential template assets",
	}

	var description string
	upload := &cobra.Command{
		Use:   "upload <slug> <file>",
		Short: "Upload or replace the file of a template asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open asset file: %w", err)
			}
			defer f.Close()

			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			asset := &models.CredentialAsset{Slug: args[0], Description: description}
			if err := a.svc.SaveAsset(ctx, asset, filepath.Base(args[1]), f); err != nil {
				return err
			}
			url, err := a.svc.AssetURL(ctx, asset.Slug)
			if err != nil {
				return err
			}
			fmt.Printf("Asset %s stored at %s\n", asset.Slug, url)
			return nil
		},
	}
	upload.Flags().StringVar(&description, "description", "", "Asset description")

	cmd.AddCommand(upload)
	return cmd
}

func newJobsCmd(a *app, connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the generation job queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show job counts by status and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done, err := connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			s, err := a.queue.Summary(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Pending:     %d\n", s.TotalPending)
			fmt.Printf("Running:     %d\n", s.TotalRunning)
			fmt.Printf("Completed:   %d\n", s.TotalCompleted)
			fmt.Printf("Failed:      %d\n", s.TotalFailed)
			fmt.Printf("Dead letter: %d\n", s.TotalDeadLetter)
			if s.OldestPending != nil {
				fmt.Printf("Oldest pending: %s\n", s.OldestPending.Format("2006-01-02 15:04:05"))
			}
			types := make([]string, 0, len(s.ByType))
			for t := range s.ByType {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("  %-40s %d\n", t, s.ByType[models.JobType(t)])
			}
			return nil
		},
	})

	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
