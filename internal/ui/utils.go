package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/pkg/errors"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var stdin = bufio.NewReader(os.Stdin)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Printf("%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Printf("\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Printf("\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Printf("%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a trimmed line from stdin
func ReadString(prompt string) string {
	PrintInfo(prompt)
	input, _ := stdin.ReadString('\n')
	return strings.TrimSpace(input)
}

// ReadInt reads an integer from stdin with validation. io.EOF is returned
// once stdin is closed.
func ReadInt(prompt string, min, max int) (int, error) {
	PrintInfo(prompt)
	input, err := stdin.ReadString('\n')
	input = strings.TrimSpace(input)
	if err == io.EOF && input == "" {
		return 0, io.EOF
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, errors.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, errors.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadYears reads the years to analyse. An empty answer keeps the defaults.
func ReadYears(prompt string, defaults []int) ([]int, error) {
	input := ReadString(prompt)
	if input == "" {
		return defaults, nil
	}
	return ParseYears(input)
}

// ParseYears accepts a range ("2018-2023"), a list ("2018,2020") or a mix of both.
func ParseYears(input string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		if !isRange {
			to = from
		}
		first, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, errors.Errorf("invalid year: %s", part)
		}
		last, err := strconv.Atoi(strings.TrimSpace(to))
		if err != nil {
			return nil, errors.Errorf("invalid year: %s", part)
		}
		if last < first {
			return nil, errors.Errorf("invalid year range: %s", part)
		}
		for year := first; year <= last; year++ {
			years = append(years, year)
		}
	}
	if len(years) == 0 {
		return nil, errors.Errorf("no years given")
	}
	return years, nil
}

// CreateResultDirectory creates data/result/<region>
func CreateResultDirectory(region string) (string, error) {
	resultPath := properties.DataPath("result", region)
	if err := os.MkdirAll(resultPath, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "failed to create result folder")
	}
	return resultPath, nil
}
