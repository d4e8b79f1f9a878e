// Package cliui provides reusable terminal UI helpers (step indicators,
// shared styles) for chatbot CLI commands.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	WarnMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("!")

	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	NameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ScoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ mark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	close(done)

	mu.Lock()
	defer mu.Unlock()

	elapsed := DimStyle.Render(fmt.Sprintf("(%s)", time.Since(start).Round(time.Millisecond)))
	if err != nil {
		fmt.Fprintf(w, "\r  %s %s %s\n", FailMark, msg, elapsed)
		return err
	}

	fmt.Fprintf(w, "\r  %s %s %s\n", SuccessMark, msg, elapsed)
	return nil
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
