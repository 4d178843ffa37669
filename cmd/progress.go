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
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/valpere/bntran/internal/dispatcher"
	"github.com/valpere/bntran/internal/progress"
)

var (
	cyan   = color.New(color.Bold, color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.Bold, color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	white  = color.New(color.FgWhite).SprintFunc()
)

// progressPrinter redraws a single status line for each progress event.
type progressPrinter struct {
	w       io.Writer
	quiet   bool
	started time.Time
	drawn   bool
}

func newProgressPrinter(w io.Writer, quiet bool) *progressPrinter {
	return &progressPrinter{w: w, quiet: quiet, started: time.Now()}
}

func (p *progressPrinter) Print(ev dispatcher.Event) {
	if p.quiet {
		return
	}
	switch ev.Kind {
	case dispatcher.EventProgress, dispatcher.EventCacheUpdate:
	default:
		return
	}

	elapsed := time.Since(p.started).Round(time.Second)
	fmt.Fprintf(p.w, "\r%s %d/%d  hits %s  api %s  elapsed %s   ",
		cyan(fmt.Sprintf("%5.1f%%", progress.Fraction(ev)*100)),
		ev.Processed, ev.Total,
		green(ev.Stats.CacheHits),
		white(ev.Stats.APICalls),
		elapsed,
	)
	p.drawn = true
}

// Finish ends the status line so later output starts on a fresh one.
func (p *progressPrinter) Finish() {
	if p.drawn {
		fmt.Fprintln(p.w)
	}
}
