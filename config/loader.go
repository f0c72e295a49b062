package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Transitions maps a status to the statuses that may follow it. A status
// without an entry may move anywhere.
type Transitions map[string][]string

var transitionsLock sync.Mutex

// LoadTransitions reads the transition table. An empty path or a missing
// file means no restrictions.
func LoadTransitions(path string) (Transitions, error) {
	if path == "" {
		return nil, nil
	}

	transitionsLock.Lock()
	defer transitionsLock.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transitions file: %w", err)
	}

	var t Transitions
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transitions file: %w", err)
	}
	return t, nil
}

// SaveTransitions writes t to path with pretty printing.
func SaveTransitions(path string, t Transitions) error {
	if path == "" {
		return errors.New("no transitions file configured")
	}

	transitionsLock.Lock()
	defer transitionsLock.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal transitions: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write transitions file: %w", err)
	}
	return nil
}

// Validate rejects statuses outside known.
func (t Transitions) Validate(known []string) error {
	allowed := make(map[string]bool, len(known))
	for _, s := range known {
		allowed[s] = true
	}

	var unknown []string
	for from, next := range t {
		if !allowed[from] {
			unknown = append(unknown, from)
		}
		for _, to := range next {
			if !allowed[to] {
				unknown = append(unknown, to)
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown statuses in transitions: %v", unknown)
	}
	return nil
}
