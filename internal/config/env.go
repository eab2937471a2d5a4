package config

import (
	"os"
	"strings"
)

// Environment variable names for overrides. The Nextcloud* names are shared
// with the rest of the test tooling for the platform.
const (
	EnvConfig        = "DRIVE_STRESS_CONFIG"
	EnvTarget        = "NextcloudTestTarget"
	EnvCustomers     = "NextcloudTestCustomers"
	EnvBrowsers      = "NextcloudTestBrowsers"
	EnvJobName       = "JOB_NAME"
	EnvPublishKeyID  = "DRIVE_STRESS_PUBLISH_ACCESS_KEY_ID"
	EnvPublishSecret = "DRIVE_STRESS_PUBLISH_SECRET_ACCESS_KEY"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath      string
	Environment     string
	Nodes           []string // NextcloudTestCustomers; ignored unless the names are catalog nodes
	Browsers        []string
	JobName         string
	AccessKeyID     string
	SecretAccessKey string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		Environment:     os.Getenv(EnvTarget),
		Nodes:           splitList(os.Getenv(EnvCustomers)),
		Browsers:        splitList(os.Getenv(EnvBrowsers)),
		JobName:         os.Getenv(EnvJobName),
		AccessKeyID:     os.Getenv(EnvPublishKeyID),
		SecretAccessKey: os.Getenv(EnvPublishSecret),
	}
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
