package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/v2x-tools/scenedex/internal/dirfs"
	"github.com/v2x-tools/scenedex/internal/family"
	"github.com/v2x-tools/scenedex/internal/session"
)

var (
	listDataset string
	listSplit   string
	listGroup   string
	listLimit   int
)

func init() {
	listCmd.Flags().StringVarP(&listDataset, "dataset", "d", "", "dataset id (omit to list datasets)")
	listCmd.Flags().StringVar(&listSplit, "split", "all", "split to list")
	listCmd.Flags().StringVar(&listGroup, "group", "", "filter scenes to one group")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "max scenes to print")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets, groups and scenes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}

		sess := session.New(nil)
		store := family.NewStore(sess, log)
		if err := store.Open(dirfs.FromOS(abs)); err != nil {
			return fmt.Errorf("open root %s: %w", abs, err)
		}

		if listDataset == "" {
			for _, ds := range store.Datasets() {
				fmt.Printf("%-16s %-12s %s\n", ds.ID, ds.Family, ds.Label)
			}
			return nil
		}

		cat, err := store.Catalog(listDataset)
		if err != nil {
			return err
		}
		ctx := context.Background()

		groups, err := cat.ListGroups(ctx, listSplit)
		if err != nil {
			return err
		}
		fmt.Printf("groups (%d):\n", len(groups))
		for _, g := range groups {
			fmt.Printf("  %-40s %4d  %s\n", g.GroupID, g.Count, g.Label)
		}

		page, err := cat.ListScenes(ctx, listSplit, listGroup, 0, listLimit)
		if err != nil {
			return err
		}
		fmt.Printf("scenes (%d of %d):\n", len(page.Items), page.Total)
		for _, s := range page.Items {
			label := s.Label
			if label == "" {
				label = "Scene " + s.SceneID
			}
			fmt.Printf("  %-6s %-24s %s\n", s.SceneID, s.GroupID, label)
		}
		return nil
	},
}
