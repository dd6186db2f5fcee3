/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/uimarket/uimarket/config"
	"github.com/uimarket/uimarket/internal/client"
	"github.com/uimarket/uimarket/internal/db"
	"github.com/uimarket/uimarket/internal/services"
	"github.com/uimarket/uimarket/internal/storage"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/internal/store/memstore"
)

// catalogCmd groups catalog maintenance commands.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance",
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON snapshot of the catalog to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		exports, bucket, closeAll, err := openExportService(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeAll()

		key, snapshot, err := exports.Export(ctx)
		if err != nil {
			return err
		}
		slog.Info("catalog exported", "bucket", bucket, "key", key, "components", snapshot.Count)
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored catalog snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		exports, _, closeAll, err := openExportService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll()

		snapshots, err := exports.Snapshots(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
		for _, object := range snapshots {
			fmt.Fprintf(w, "%s\t%d\t%s\n", object.Key, object.Size, object.LastModified.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Summarise a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exports, _, closeAll, err := openExportService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll()

		snapshot, err := exports.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "generated %s, %d components\n",
			snapshot.GeneratedAt.Format(time.RFC3339), snapshot.Count)
		fmt.Fprintln(cmd.OutOrStdout(), client.CatalogTree(args[0], snapshot.Components))
		return nil
	},
}

var pruneKeep int

var catalogPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		exports, bucket, closeAll, err := openExportService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll()

		deleted, err := exports.Prune(cmd.Context(), pruneKeep)
		for _, key := range deleted {
			slog.Info("snapshot deleted", "bucket", bucket, "key", key)
		}
		return err
	},
}

func openExportService(ctx context.Context, cfg config.Config) (*services.ExportService, string, func(), error) {
	components, closeStore, err := openComponentService(ctx, cfg)
	if err != nil {
		return nil, "", nil, err
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		closeStore()
		return nil, "", nil, err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		closeStore()
		return nil, "", nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
	}
	return services.NewExportService(components, objects), objects.Bucket(), closeStore, nil
}

func openComponentService(ctx context.Context, cfg config.Config) (*services.ComponentService, func(), error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		mem := memstore.New()
		return services.NewComponentService(mem.Components(), mem.Users(), nil), func() {}, nil
	}

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	svc := services.NewComponentService(
		store.NewComponentRepository(conn),
		store.NewUserRepository(conn),
		nil,
	)
	return svc, func() { _ = conn.Close() }, nil
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogExportCmd, catalogListCmd, catalogShowCmd, catalogPruneCmd)

	catalogPruneCmd.Flags().IntVar(&pruneKeep, "keep", 10, "number of newest snapshots to keep")
}
