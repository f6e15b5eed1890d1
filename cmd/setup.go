package main

import (
	"context"
	"fmt"

	"github.com/tmacdonald/prefsweep/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter configuration file, optionally bootstrapping the
// endpoint and credentials from a cURL command copied out of a browser's
// network inspector.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	curlCmd := cmd.String("from-curl")
	curlFile := cmd.String("curl-file")

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --from-curl and --curl-file", shared.ErrInvalidArgument)
	}

	if curlCmd == "" && curlFile == "" {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", configPath)

		r.writePlain("✓ Configuration template written to %s\n", configPath)
		r.writePlainln("Next steps:")
		r.writePlain("1. Set api.base_url to your platform instance\n")
		r.writePlain("2. Export CANVAS_TOKEN or fill in api.token\n")
		r.writePlain("3. Run 'prefsweep targets <term-id>' to preview a sweep\n")
		return nil
	}

	r.logger.Info("parsing cURL command for API settings")

	var capture *shared.CurlCapture
	var err error

	if curlFile != "" {
		capture, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		capture, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	config := shared.DefaultConfig()
	if baseURL := capture.BaseURL(); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if capture.Token != "" {
		config.API.Token = capture.Token
	}
	if len(capture.Headers) > 0 {
		config.API.Headers = capture.Headers
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return err
	}
	r.logger.Info("config file created from capture", "path", configPath)

	r.writePlain("✓ Configuration written to %s\n", configPath)
	if config.API.BaseURL != "" {
		r.writePlain("Endpoint: %s\n", config.API.BaseURL)
	}
	if capture.Token != "" {
		r.writePlain("Bearer token captured (%d characters)\n", len(capture.Token))
	}
	if len(capture.Headers) > 0 {
		r.writePlain("Extra headers: %d\n", len(capture.Headers))
	}
	r.writePlainln("Next steps:")
	r.writePlain("1. Review %s before the first run\n", configPath)
	r.writePlain("2. Run 'prefsweep targets <term-id>' to preview a sweep\n")

	if cmd.Bool("open") && config.API.BaseURL != "" {
		// Session headers from a capture expire; a durable access token
		// comes from the profile settings page.
		tokenURL := config.API.BaseURL + "/profile/settings"
		if err := shared.OpenBrowser(tokenURL); err != nil {
			r.logger.Warn("failed to open browser", "url", tokenURL, "error", err)
		} else {
			r.writePlain("Opened %s to generate a durable access token\n", tokenURL)
		}
	}

	return nil
}
