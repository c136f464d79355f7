// Package source performs the one-shot load of the grading CSV that gates
// the review session.
package source

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Fetch reads the grading CSV from a local file path or an HTTP(S) URL.
// The load is one-shot with no timeout or retry; any failure is terminal
// for the session.
func Fetch(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("no grading CSV configured; set source.csv in the config")
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return fetchURL(location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", location, err)
	}
	return string(data), nil
}

func fetchURL(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(data), nil
}
