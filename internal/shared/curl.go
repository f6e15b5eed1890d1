// Utilities for bootstrapping API settings from a pasted cURL command.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// CurlCapture holds the endpoint and credentials extracted from a cURL
// command copied out of a browser's network inspector.
type CurlCapture struct {
	URL     string
	Token   string
	Headers map[string]string
	Cookie  string
}

var (
	curlURLRegex    = regexp.MustCompile(`https?://[^'"\s]+`)
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// ParseCurlFile reads a file containing a cURL command and extracts the
// endpoint, bearer token and headers.
func ParseCurlFile(filepath string) (*CurlCapture, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string. The request URL and any
// Authorization bearer token are pulled out separately; remaining headers
// are collected as an extra header bundle.
func ParseCurlCommand(data []byte) (*CurlCapture, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	capture := &CurlCapture{Headers: make(map[string]string)}

	if m := curlURLRegex.FindString(curlCmd); m != "" {
		capture.URL = m
	}

	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := match[1]
		if headerLine == "" {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch strings.ToLower(key) {
		case "authorization":
			capture.Token = strings.TrimSpace(strings.TrimPrefix(value, "Bearer "))
		case "cookie":
			capture.Cookie = value
		default:
			capture.Headers[key] = value
		}
	}

	if cookieMatch := curlCookieRegex.FindStringSubmatch(curlCmd); len(cookieMatch) > 1 {
		if cookieMatch[1] != "" {
			capture.Cookie = cookieMatch[1]
		} else if cookieMatch[2] != "" {
			capture.Cookie = cookieMatch[2]
		}
	}

	if capture.URL == "" && capture.Token == "" && len(capture.Headers) == 0 {
		return nil, fmt.Errorf("no URL or headers found in curl command")
	}

	return capture, nil
}

// BaseURL reduces the captured request URL to its scheme and host, the form
// stored in configuration.
func (c *CurlCapture) BaseURL() string {
	if c.URL == "" {
		return ""
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
