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
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past translation sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appConfig)
		if err != nil {
			return err
		}
		defer db.Close()

		sessions, err := db.ListSessions(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSTATUS\tINPUT\tCOLUMNS\tCELLS\tHITS\tAPI\tFAILED\tLEARNED\tDURATION")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%d\t%s\n",
				s.StartedAt.Local().Format("2006-01-02 15:04"), s.Status, snippet(s.InputFile),
				strings.Join(s.Columns, ","), s.Processed, s.TotalItems,
				s.CacheHits, s.APICalls, s.Fallbacks, s.Learned,
				s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show (0 = all)")
}
