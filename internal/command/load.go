package command

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// LoadRequest reads a print request from a file path or an http(s) URL
func LoadRequest(pathOrURL string) (*ticketformat.PrintRequest, error) {
	if !strings.HasPrefix(pathOrURL, "http://") && !strings.HasPrefix(pathOrURL, "https://") {
		return ticketformat.ParseFile(pathOrURL)
	}

	resp, err := httpClient.Get(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket from URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch ticket: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket from URL: %w", err)
	}

	return ticketformat.Parse(data)
}
