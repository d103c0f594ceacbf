package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/v2x-tools/scenedex/internal/dirfs"
	"github.com/v2x-tools/scenedex/internal/family"
	"github.com/v2x-tools/scenedex/internal/profile"
	"github.com/v2x-tools/scenedex/internal/session"
)

var detectDir string

func init() {
	indexCmd.Flags().StringVar(&detectDir, "detect", "", "score CSV files under a directory for windowed-family fit instead of indexing")
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build scene indexes for every registered dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}
		root := dirfs.FromOS(abs)

		if detectDir != "" {
			return runDetect(root)
		}

		sess := session.New(nil)
		store := family.NewStore(sess, log)
		if err := store.Open(root); err != nil {
			return fmt.Errorf("open root %s: %w", abs, err)
		}

		ctx := context.Background()
		for _, ds := range store.Datasets() {
			cat, err := store.Catalog(ds.ID)
			if err != nil {
				return err
			}
			splits := []string{"all"}
			if ds.Family == profile.FamilyPassThrough {
				splits = []string{"train", "val"}
			}
			for _, split := range splits {
				page, err := cat.ListScenes(ctx, split, "", 0, 1)
				if err != nil {
					return fmt.Errorf("index %s: %w", ds.ID, err)
				}
				groups, err := cat.ListGroups(ctx, split)
				if err != nil {
					return fmt.Errorf("index %s: %w", ds.ID, err)
				}
				fmt.Printf("%s [%s] %s: %d scenes across %d groups\n", ds.ID, ds.Family, split, page.Total, len(groups))
			}
		}
		return nil
	},
}

// runDetect scores every CSV under the directory and reports how confident
// the windowed family adapter would be about each.
func runDetect(root *dirfs.Dir) error {
	paths, err := root.WalkSuffix(detectDir, ".csv")
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("no CSV files found")
		return nil
	}
	scores := make([]profile.FileScore, 0, len(paths))
	for _, p := range paths {
		text, err := root.ReadText(p)
		if err != nil {
			return err
		}
		scores = append(scores, profile.ScoreCPM(p, text, nil))
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	for _, s := range scores {
		if s.Reason != "" {
			fmt.Printf("%6.1f  %s (%s)\n", s.Score, s.Path, s.Reason)
			continue
		}
		fmt.Printf("%6.1f  %s (delim %q, %d sample rows)\n", s.Score, s.Path, s.Delimiter, s.SampleRows)
	}
	fmt.Printf("decision: %s\n", profile.Decision(scores))
	return nil
}
