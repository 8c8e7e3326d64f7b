// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxListBytes bounds the size of a downloaded proxy list.
const maxListBytes = 4 << 20

// FetchCandidates downloads the proxy list at listURL and returns the
// host:port candidates it contains, in list order.
func FetchCandidates(ctx context.Context, client *http.Client, listURL, userAgent string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching proxy list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy list returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return nil, fmt.Errorf("reading proxy list: %w", err)
	}
	return ParseList(body)
}

// ParseList extracts host:port candidates from either an HTML page holding
// a proxy table (IP in the first cell, port in the second) or a plain list
// with one host:port per line. Duplicates are dropped.
func ParseList(body []byte) ([]string, error) {
	if looksLikeHTML(body) {
		return parseTable(body)
	}
	return parseLines(body), nil
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(body[:min(len(body), 512)])
	return bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<!doctype")) ||
		bytes.Contains(head, []byte("<table"))
}

func parseTable(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing proxy table: %w", err)
	}

	var out []string
	seen := make(map[string]bool)
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		host := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if addr, ok := candidate(host, port); ok && !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	})
	return out, nil
}

func parseLines(body []byte) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Some lists prefix a scheme.
		line = strings.TrimPrefix(line, "http://")
		host, port, err := net.SplitHostPort(line)
		if err != nil {
			continue
		}
		if addr, ok := candidate(host, port); ok && !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

// candidate validates an IP and port pair and joins them.
func candidate(host, port string) (string, bool) {
	if net.ParseIP(host) == nil {
		return "", false
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return "", false
	}
	return net.JoinHostPort(host, port), true
}
