package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"smartats/internal/errors"
)

// PromptWatcher watches the custom prompt file and reloads it on change, so
// prompt tuning in production does not require a restart.
type PromptWatcher struct {
	mu sync.Mutex

	promptFile  string
	lastModTime time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	logger  *errors.Logger
	running bool
}

// NewPromptWatcher creates a watcher for the given prompt file
func NewPromptWatcher(promptFile string, debounceDelay time.Duration, logger *errors.Logger) *PromptWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	return &PromptWatcher{
		promptFile:    promptFile,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1), // Buffered to prevent blocking
		logger:        logger,
	}
}

// Start begins watching the prompt file for changes
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	if stat, err := os.Stat(pw.promptFile); err == nil {
		pw.lastModTime = stat.ModTime()
	}

	// Watch the directory too, to catch atomic writes (rename operations)
	if err := pw.fsWatcher.Add(pw.promptFile); err != nil && !os.IsNotExist(err) {
		pw.cleanupWatcher()
		return fmt.Errorf("failed to watch prompt file %s: %w", pw.promptFile, err)
	}
	if err := pw.fsWatcher.Add(filepath.Dir(pw.promptFile)); err != nil {
		if pw.logger != nil {
			pw.logger.Warn("Failed to watch prompt file directory",
				"directory", filepath.Dir(pw.promptFile), "error", err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher started",
			"file", pw.promptFile,
			"debounce_delay", pw.debounceDelay)
	}

	return nil
}

// Stop stops the prompt file watcher
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}

	if pw.fsWatcher != nil {
		if err := pw.fsWatcher.Close(); err != nil {
			if pw.logger != nil {
				pw.logger.LogError(err, "Failed to close prompt file watcher")
			}
			return err
		}
	}

	pw.running = false

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher stopped")
	}

	return nil
}

// IsRunning returns whether the watcher is currently running
func (pw *PromptWatcher) IsRunning() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.running
}

func (pw *PromptWatcher) cleanupWatcher() {
	if pw.fsWatcher != nil {
		if closeErr := pw.fsWatcher.Close(); closeErr != nil && pw.logger != nil {
			pw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
	}
}

// watchLoop is the main event loop for file watching
func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			if pw.logger != nil {
				pw.logger.LogError(err, "Prompt file watcher error")
			}

		case <-pw.reloadChan:
			if pw.hasFileChanged() {
				pw.reloadPrompt()
			}

		case <-pw.stopChan:
			return
		}
	}
}

// shouldProcessEvent filters events down to changes of the watched file
func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Name != pw.promptFile && filepath.Base(event.Name) != filepath.Base(pw.promptFile) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged checks if the prompt file has been modified since last check
func (pw *PromptWatcher) hasFileChanged() bool {
	stat, err := os.Stat(pw.promptFile)
	if err != nil {
		return false
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()

	if stat.ModTime().After(pw.lastModTime) {
		pw.lastModTime = stat.ModTime()
		return true
	}
	return false
}

// reloadPrompt re-reads the prompt file and swaps the active template.
// A broken file keeps the previous prompt in place.
func (pw *PromptWatcher) reloadPrompt() {
	content, err := readPromptFile(pw.promptFile)
	if err != nil {
		if pw.logger != nil {
			pw.logger.LogError(err, "Failed to reload prompt file, keeping previous prompt",
				"file", pw.promptFile)
		}
		return
	}

	setActivePrompt(content, "file")

	if pw.logger != nil {
		pw.logger.Info("Custom analysis prompt reloaded",
			"file", pw.promptFile,
			"characters", len(content))
	}
}

// scheduleReload schedules a debounced reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}

	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
			// Reload already scheduled
		}
	})
}
