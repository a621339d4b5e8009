package net

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ErrorURLNotFound indicates the remote host answered 404 for the URL.
var ErrorURLNotFound = errors.New("URL not found")

// GetBytes retrieves the HTTP content as raw bytes.
func GetBytes(client *http.Client, url string) ([]byte, error) {
	resp, err := getResp(client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, url); err != nil {
		return nil, err
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading content: %w", err)
	}
	return b, nil
}

// Download retrieves the URL content into a local file.
func Download(client *http.Client, url, filepath string) (retErr error) {
	out, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	resp, err := getResp(client, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, url); err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}
	return nil
}

func getResp(client *http.Client, url string) (*http.Response, error) {
	if client == nil {
		client = GetHTTPClient()
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)

	return client.Do(req)
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrorURLNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error fetching content (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}
	return nil
}
