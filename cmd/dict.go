/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/bntran/internal/dictionary"
	"github.com/valpere/bntran/internal/lexicon"
	"github.com/valpere/bntran/internal/store"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the custom dictionary",
	Long: `List, edit, import and export the custom dictionary.

Entries map English text (case and spacing are ignored) to its Bengali
translation and take precedence over the built-in dictionary. The dictionary
lives in a JSON file or, with --backend sqlite, in the translation memory
database.`,
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all custom dictionary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()
		ctx := context.Background()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		if db, ok := dict.(*store.Store); ok {
			entries, err := db.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Custom dictionary is empty.")
				return nil
			}
			fmt.Fprintln(w, "SOURCE\tTRANSLATION\tSERVICE\tUSED\tLAST USED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					snippet(e.SourceKey), e.Translation, e.ServiceUsed,
					e.UsageCount, e.LastUsed.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		}

		entries, err := dict.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load dictionary: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("Custom dictionary is empty.")
			return nil
		}
		fmt.Fprintln(w, "SOURCE\tTRANSLATION")
		for _, k := range sortedKeys(entries) {
			fmt.Fprintf(w, "%s\t%s\n", snippet(k), entries[k])
		}
		return w.Flush()
	},
}

var dictStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dictionary statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()
		ctx := context.Background()

		custom, err := dict.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load dictionary: %w", err)
		}
		sizes := lexicon.New(custom).Sizes()

		fmt.Printf("Built-in entries: %d\n", sizes.Static)
		fmt.Printf("Custom entries:   %d\n", sizes.Custom)

		if db, ok := dict.(*store.Store); ok {
			stats, err := db.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			fmt.Printf("  learned:        %d\n", stats.LearnedEntries)
			fmt.Printf("  manual:         %d\n", stats.ManualEntries)
			fmt.Printf("Total usage:      %d\n", stats.TotalUsage)
		}
		return nil
	},
}

var dictAddCmd = &cobra.Command{
	Use:   "add <source> <translation>",
	Short: "Add or replace a custom dictionary entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()
		ctx := context.Background()

		if db, ok := dict.(*store.Store); ok {
			err = db.Add(ctx, args[0], args[1])
		} else {
			err = dict.Merge(ctx, map[string]string{args[0]: args[1]})
		}
		if err != nil {
			return fmt.Errorf("failed to add entry: %w", err)
		}
		fmt.Printf("Added: %s -> %s\n", lexicon.Normalize(args[0]), args[1])
		return nil
	},
}

var dictDeleteCmd = &cobra.Command{
	Use:   "delete <source>",
	Short: "Delete a custom dictionary entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()

		ok, err := dict.Delete(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		if !ok {
			return fmt.Errorf("no entry for %q", lexicon.Normalize(args[0]))
		}
		fmt.Printf("Deleted entry: %s\n", lexicon.Normalize(args[0]))
		return nil
	},
}

var dictClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all custom dictionary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()

		n, err := dict.Clear(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear dictionary: %w", err)
		}
		fmt.Printf("Cleared %d entries from the custom dictionary.\n", n)
		return nil
	},
}

var dictExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the custom dictionary as JSON to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()

		entries, err := dict.Load(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load dictionary: %w", err)
		}
		data, err := dictionary.Encode(entries)
		if err != nil {
			return fmt.Errorf("failed to encode dictionary: %w", err)
		}

		if len(args) == 0 {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d entries to %s\n", len(entries), args[0])
		return nil
	},
}

var dictImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a JSON dictionary file into the custom dictionary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		entries, err := dictionary.Decode(data)
		if err != nil {
			return err
		}

		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()

		if err := dict.Merge(context.Background(), entries); err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}
		fmt.Printf("Imported %d entries.\n", len(entries))
		return nil
	},
}

var lookupThreshold float64

var dictLookupCmd = &cobra.Command{
	Use:   "lookup <text>",
	Short: "Show how a text would be answered from the dictionaries",
	Long: `Look a text up in the custom and built-in dictionaries.

With the sqlite backend, --fuzzy also finds the most similar custom entry
(a score between 0 and 1, e.g. 0.85) when there is no exact match.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := openDictionary(appConfig)
		if err != nil {
			return err
		}
		defer dict.Close()
		ctx := context.Background()

		custom, err := dict.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load dictionary: %w", err)
		}
		if v, ok := lexicon.New(custom).Lookup(args[0]); ok {
			fmt.Println(v)
			return nil
		}

		if db, ok := dict.(*store.Store); ok && lookupThreshold > 0 {
			key, v, found, err := db.Lookup(ctx, args[0], lookupThreshold)
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}
			if found {
				fmt.Printf("%s\t(similar to %q)\n", v, key)
				return nil
			}
		}
		return fmt.Errorf("no entry for %q", lexicon.Normalize(args[0]))
	},
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(dictCmd)

	dictLookupCmd.Flags().Float64Var(&lookupThreshold, "fuzzy", 0, "Minimum similarity for a fuzzy match (sqlite backend only, 0 = exact only)")

	dictCmd.AddCommand(dictListCmd)
	dictCmd.AddCommand(dictStatsCmd)
	dictCmd.AddCommand(dictAddCmd)
	dictCmd.AddCommand(dictDeleteCmd)
	dictCmd.AddCommand(dictClearCmd)
	dictCmd.AddCommand(dictExportCmd)
	dictCmd.AddCommand(dictImportCmd)
	dictCmd.AddCommand(dictLookupCmd)
}
