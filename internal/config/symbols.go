package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadSymbols reads a symbol list from path.
// Symbols may be separated by commas, spaces or newlines; text after '#' is ignored.
func LoadSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbols file: %w", err)
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		symbols = append(symbols, splitSymbols([]string{line})...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symbols file: %w", err)
	}

	return symbols, nil
}
