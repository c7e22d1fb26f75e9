package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reddot-watch/newswire/internal/models"
)

// Loader resolves the configured feed sources
type Loader struct {
	// RemoteURL is downloaded when the CSV path does not exist locally.
	RemoteURL string
	Client    *http.Client
}

// NewLoader creates a loader that falls back to remoteURL for missing files.
func NewLoader(remoteURL string) *Loader {
	return &Loader{
		RemoteURL: remoteURL,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Load returns the sources from the CSV file at csvPath, or the built-in
// defaults when csvPath is empty.
func (l *Loader) Load(ctx context.Context, csvPath string) ([]models.FeedSource, error) {
	if csvPath == "" {
		log.Debug().Msg("No sources file configured, using built-in sources")
		return Defaults(), nil
	}

	csvData, err := l.getCSVData(ctx, csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get CSV data: %w", err)
	}
	if closer, ok := csvData.(io.Closer); ok {
		defer closer.Close()
	}

	sources, err := ParseCSV(csvData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no usable sources in %s", csvPath)
	}

	log.Info().Str("csv", csvPath).Int("sources", len(sources)).Msg("Loaded feed sources")
	return sources, nil
}

func (l *Loader) getCSVData(ctx context.Context, csvPath string) (io.Reader, error) {
	if _, err := os.Stat(csvPath); err == nil {
		log.Debug().Str("path", csvPath).Msg("Using local CSV file")
		return os.Open(csvPath)
	}

	if l.RemoteURL == "" {
		return nil, fmt.Errorf("CSV file not found: %s", csvPath)
	}

	log.Info().Str("url", l.RemoteURL).Str("path", csvPath).Msg("Local CSV file not found. Downloading from remote source")

	body, err := l.downloadCSV(ctx, l.RemoteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download CSV file: %w", err)
	}

	if err := os.WriteFile(csvPath, body, 0644); err != nil {
		// The download is still usable, only the local copy is missing
		log.Warn().Err(err).Str("path", csvPath).Msg("Failed to save downloaded CSV file")
	} else {
		log.Debug().Int("bytes", len(body)).Str("path", csvPath).Msg("Downloaded and saved CSV file")
	}

	return bytes.NewReader(body), nil
}

func (l *Loader) downloadCSV(ctx context.Context, remoteURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: HTTP status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ParseCSV reads sources from CSV data with a name,url[,site] header.
// Rows with a missing name or an invalid URL are skipped, as are repeated URLs.
func ParseCSV(csvData io.Reader) ([]models.FeedSource, error) {
	reader := csv.NewReader(csvData)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	nameIdx := findColumnIndex(header, "name")
	urlIdx := findColumnIndex(header, "url")
	siteIdx := findColumnIndex(header, "site")

	if nameIdx < 0 {
		return nil, fmt.Errorf("required column 'name' not found in CSV header")
	}
	if urlIdx < 0 {
		return nil, fmt.Errorf("required column 'url' not found in CSV header")
	}

	var sources []models.FeedSource
	seen := make(map[string]bool)
	lineCount := 1 // Header was already read

	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			continue
		}

		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			continue
		}

		source := models.FeedSource{
			Name: safeGetValue(record, nameIdx),
			URL:  safeGetValue(record, urlIdx),
			Site: safeGetValue(record, siteIdx),
		}

		logger := log.With().Int("line", lineCount).Str("url", source.URL).Logger()

		feedURL, err := url.Parse(source.URL)
		if source.Name == "" || err != nil || (feedURL.Scheme != "http" && feedURL.Scheme != "https") || feedURL.Host == "" {
			logger.Warn().Msg("Skipping row without a name or an absolute http(s) URL")
			continue
		}
		if seen[strings.ToLower(source.URL)] {
			logger.Warn().Msg("Duplicate URL")
			continue
		}
		seen[strings.ToLower(source.URL)] = true

		if source.Site == "" {
			source.Site = feedURL.Scheme + "://" + feedURL.Host
		}

		sources = append(sources, source)
	}

	return sources, nil
}

// WriteCSV writes sources in the format ParseCSV reads.
func WriteCSV(w io.Writer, sources []models.FeedSource) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"name", "url", "site"}); err != nil {
		return err
	}
	for _, s := range sources {
		if err := csvWriter.Write([]string{s.Name, s.URL, s.Site}); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the trimmed field at index, or "" when out of range.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
