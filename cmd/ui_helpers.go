package cmd

import (
	"fmt"
	"os"
	"sync"
	"time"

	"seedfast/forcebridge/internal/terminal"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// withSpinner runs fn while a stick-style spinner with text is shown. The
// spinner is removed when fn returns. Output that is not a terminal gets no
// animation.
func withSpinner(text string, fn func() error) error {
	if !terminal.IsInteractive(os.Stdout) {
		return fn()
	}
	stop := startInlineSpinner(text, spinnerFrames, 120*time.Millisecond)
	defer stop()
	return fn()
}

// startInlineSpinner animates frames followed by text in a pterm area and
// returns the function that stops it.
func startInlineSpinner(text string, frames []string, interval time.Duration) func() {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		i := 0
		for {
			area.Update(fmt.Sprintf("%s %s", frames[i%len(frames)], text))
			select {
			case <-stopCh:
				return
			case <-t.C:
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			wg.Wait()
			_ = area.Stop()
			cursor.Show()
		})
	}
}
