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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/bntran/internal"
	"github.com/valpere/bntran/internal/lexicon"
	"github.com/valpere/bntran/internal/pool"
	"github.com/valpere/bntran/internal/session"
	"github.com/valpere/bntran/internal/store"
	"github.com/valpere/bntran/internal/tabular"
	"github.com/valpere/bntran/internal/validator"
)

var (
	inputFile       string
	outputFile      string
	columns         []string
	preserveNumeric []string
	quiet           bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate columns of a CSV file to Bengali",
	Long: `Translate one or more columns of a CSV file from English to Bengali.

By default all columns are translated. Use -c to select columns by header
name; the flag may be repeated. Cells of --preserve-numeric columns that hold
only a number are rewritten in Bengali digits, other numeric fields such as
phone numbers are copied unchanged.

Available services (tried in the given order, each batch starting with the
next one):
  - googleweb   Google Translate web endpoint (free, no key)
  - mymemory    MyMemory (free, 5000 chars/day)
  - google      Google Cloud Translation (requires credentials or API key)
  - openai      OpenAI chat models (requires API key)
  - openrouter  OpenRouter LLM (requires API key)
  - systran     Systran Translate (requires API key)
  - ollama      Ollama LLM (self-hosted)

Press Ctrl+C to stop early; cells finished so far are still written.

Example:
  bntran translate -i people.csv -o people_bn.csv -c name -c address -p age
  bntran translate -i data.csv -o out.csv --services openai,googleweb --validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}
		cfg := appConfig

		ds, err := tabular.ReadFile(inputFile)
		if err != nil {
			return err
		}
		selected := columns
		if len(selected) == 0 {
			selected = ds.Columns
		}

		serviceList, err := buildServices(cfg)
		if err != nil {
			return err
		}

		var check pool.Validator
		if cfg.Engine.Validate {
			check = validator.New()
		}
		providers := pool.New(serviceList, pool.Config{
			Timeout:        cfg.Engine.Timeout,
			RateLimitDelay: cfg.Engine.RateLimitDelay,
			Validator:      check,
			Logger:         logger,
		})

		dict, err := openDictionary(cfg)
		if err != nil {
			return err
		}
		defer dict.Close()

		var history *store.Store
		if cfg.Dictionary.History {
			if db, ok := dict.(*store.Store); ok {
				history = db
			} else if db, err := openStore(cfg); err != nil {
				logger.Warn().Err(err).Msg("session history disabled")
			} else {
				history = db
				defer db.Close()
			}
		}

		controller := session.New(lexicon.New(nil), providers, dict, dict, session.Config{
			ProgressInterval: cfg.Engine.ProgressInterval,
			AutoSave:         cfg.Dictionary.AutoSave,
			Logger:           logger,
		})

		ctx := cmd.Context()
		h, err := controller.Start(ctx, session.Request{
			Dataset:         ds,
			Columns:         selected,
			PreserveNumeric: preserveNumeric,
			Concurrency:     cfg.Engine.Concurrency,
			StartOffset:     cfg.Engine.StartOffset,
			BatchSize:       cfg.Engine.BatchSize,
		})
		if errors.Is(err, session.ErrUnknownColumn) {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(ds.Columns, ", "))
		}
		if err != nil {
			return err
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-sigCtx.Done()
			if controller.Cancel(h) == nil {
				fmt.Fprintf(os.Stderr, "\n%s\n", yellow("Cancelling, finished cells will be kept..."))
			}
		}()

		fmt.Fprintf(os.Stderr, "Translating %s (%d rows, columns: %s) with %s\n",
			inputFile, ds.Len(), strings.Join(selected, ", "), strings.Join(providers.Names(), ", "))

		printer := newProgressPrinter(os.Stderr, quiet)
		for ev := range h.Events() {
			printer.Print(ev)
		}
		printer.Finish()

		result, err := controller.Await(ctx, h)
		if err != nil {
			if result != nil {
				saveHistory(history, result, selected)
			}
			return fmt.Errorf("translation failed: %w", err)
		}

		if err := tabular.WriteFile(outputFile, result.Dataset, tabular.WriteOptions{BOM: cfg.Output.BOM}); err != nil {
			return err
		}
		saveHistory(history, result, selected)

		printSummary(result)
		return nil
	},
}

func saveHistory(db *store.Store, result *session.Result, selected []string) {
	if db == nil {
		return
	}
	st := result.State
	rec := internal.SessionRecord{
		ID:         st.ID,
		InputFile:  inputFile,
		OutputFile: outputFile,
		Columns:    selected,
		Status:     result.Outcome.String(),
		TotalItems: st.TotalItems,
		UniqueKeys: st.UniqueKeys,
		Processed:  st.Processed,
		CacheHits:  st.CacheHits,
		APICalls:   st.APICalls,
		Fallbacks:  st.Fallbacks,
		Learned:    len(result.Learned),
		StartedAt:  st.StartedAt,
		FinishedAt: st.StartedAt.Add(result.Elapsed),
	}
	if err := db.SaveSession(context.Background(), rec); err != nil {
		logger.Warn().Err(err).Msg("failed to record session")
	}
}

func printSummary(result *session.Result) {
	st := result.State
	switch result.Outcome {
	case session.OutcomeCancelled:
		fmt.Println(yellow(fmt.Sprintf("Translation cancelled: %d of %d cells done, partial result written to %s", st.Processed, st.TotalItems, outputFile)))
	default:
		fmt.Println(green(fmt.Sprintf("CSV translated successfully: %s", outputFile)))
	}

	ratio := 0.0
	if resolved := st.CacheHits + st.APICalls; resolved > 0 {
		ratio = float64(st.CacheHits) / float64(resolved) * 100
	}
	fmt.Printf("Cells:        %d\n", st.TotalItems)
	fmt.Printf("Unique texts: %d\n", st.UniqueKeys)
	fmt.Printf("Cache hits:   %d (%.1f%%)\n", st.CacheHits, ratio)
	fmt.Printf("API calls:    %d\n", st.APICalls)
	if st.Fallbacks > 0 {
		fmt.Printf("Untranslated: %s\n", red(fmt.Sprintf("%d (all services failed)", st.Fallbacks)))
	}
	fmt.Printf("Learned:      %d\n", len(result.Learned))
	fmt.Printf("Elapsed:      %s\n", result.Elapsed.Round(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input CSV file (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (required)")
	translateCmd.Flags().StringArrayVarP(&columns, "column", "c", nil, "Column to translate (repeatable; default: all columns)")
	translateCmd.Flags().StringArrayVarP(&preserveNumeric, "preserve-numeric", "p", nil, "Column whose numbers are written in Bengali digits (repeatable)")
	translateCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")

	translateCmd.Flags().StringSlice("services", []string{"googleweb", "mymemory"}, "Translation services to use, in fallback order (comma-separated)")
	translateCmd.Flags().Int("concurrency", 0, "Parallel workers (0 = one per service)")
	translateCmd.Flags().Int("batch-size", 0, "Texts per batch (0 = automatic)")
	translateCmd.Flags().Int("start-offset", 0, "Service the first batch starts with")
	translateCmd.Flags().Duration("timeout", 20*time.Second, "Timeout of a single service call")
	translateCmd.Flags().Bool("validate", false, "Reject service output that is not Bengali script")
	translateCmd.Flags().Bool("auto-save", true, "Save learned translations to the custom dictionary")
	translateCmd.Flags().Bool("bom", true, "Write a UTF-8 byte order mark for spreadsheet applications")

	mustBind(translateCmd, map[string]string{
		"services":             "services",
		"engine.concurrency":   "concurrency",
		"engine.batch_size":    "batch-size",
		"engine.start_offset":  "start-offset",
		"engine.timeout":       "timeout",
		"engine.validate":      "validate",
		"dictionary.auto_save": "auto-save",
		"output.bom":           "bom",
	})

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
}
