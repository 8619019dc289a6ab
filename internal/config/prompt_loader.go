package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// activePrompt holds the currently effective analysis prompt template. It is
// shared between config loading and the file watcher so reloads take effect
// without restarting in-flight pipelines.
var activePrompt struct {
	mu      sync.RWMutex
	content string
	source  string // "inline", "file", or "" for the built-in default
}

// ActiveAnalysisPrompt returns the current custom analysis prompt template.
// An empty string means the built-in default should be used.
func ActiveAnalysisPrompt() string {
	activePrompt.mu.RLock()
	defer activePrompt.mu.RUnlock()
	return activePrompt.content
}

// AnalysisPromptSource reports where the active prompt came from
func AnalysisPromptSource() string {
	activePrompt.mu.RLock()
	defer activePrompt.mu.RUnlock()
	return activePrompt.source
}

func setActivePrompt(content, source string) {
	activePrompt.mu.Lock()
	activePrompt.content = content
	activePrompt.source = source
	activePrompt.mu.Unlock()
}

// loadPromptFromFile resolves the custom analysis prompt. The external file
// wins over the inline config value when both are set.
func (c *Config) loadPromptFromFile() error {
	if c.AI.CustomPromptFile == "" {
		if c.AI.CustomPrompt != "" {
			setActivePrompt(strings.TrimSpace(c.AI.CustomPrompt), "inline")
			log.Println("[CONFIG] Using inline custom analysis prompt")
		}
		return nil
	}

	content, err := readPromptFile(c.AI.CustomPromptFile)
	if err != nil {
		return err
	}

	setActivePrompt(content, "file")
	log.Printf("[CONFIG] Loaded custom analysis prompt from file: %s (%d characters)",
		c.AI.CustomPromptFile, len(content))

	return nil
}

// readPromptFile reads and validates a prompt template file
func readPromptFile(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve prompt file path '%s': %w", filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("prompt file not found: %s", absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file '%s' is empty", absPath)
	}

	return trimmed, nil
}
