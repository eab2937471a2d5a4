package target

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrMissingCredential is returned when no credential is configured for a
// node.
var ErrMissingCredential = errors.New("credential not configured")

// Kind names one credential of a node user.
type Kind int

const (
	SeleniumUser Kind = iota
	SeleniumPassword
	SeleniumAppPassword
	OcsUser
	OcsPassword
	OcsAppPassword
	MfaUser
	MfaPassword
	MfaAppPassword
	MfaSecret
	JupyterUser
	JupyterPassword
)

type kindInfo struct {
	env    string // middle part of NEXTCLOUD_<env>_<NODE>_<TARGET>
	getter string // PowerShell getter in NodeCredentials.ps1
}

var kinds = map[Kind]kindInfo{
	SeleniumUser:        {"SELENIUM_USER", "Get-SeleniumUser"},
	SeleniumPassword:    {"SELENIUM_PASSWORD", "Get-SeleniumUserPassword"},
	SeleniumAppPassword: {"SELENIUM_APP_PASSWORD", "Get-SeleniumUserAppPassword"},
	OcsUser:             {"OCS_USER", "Get-OcsUser"},
	OcsPassword:         {"OCS_PASSWORD", "Get-OcsPassword"},
	OcsAppPassword:      {"OCS_APP_PASSWORD", "Get-OcsAppPassword"},
	MfaUser:             {"SELENIUM_MFA_USER", "Get-SeleniumMfaUser"},
	MfaPassword:         {"SELENIUM_MFA_PASSWORD", "Get-SeleniumMfaUserPassword"},
	MfaAppPassword:      {"SELENIUM_MFA_APP_PASSWORD", "Get-SeleniumMfaUserAppPassword"},
	MfaSecret:           {"SELENIUM_MFA_SECRET", "Get-SeleniumMfaUserTotpSecret"},
	JupyterUser:         {"JUPYTER_USER", "Get-SeleniumMfaUser"},
	JupyterPassword:     {"JUPYTER_PASSWORD", "Get-SeleniumUserPassword"},
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return strings.ToLower(info.env)
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// CredentialSource looks up one credential for a node in an environment.
type CredentialSource interface {
	Lookup(ctx context.Context, kind Kind, node, environment string) (string, error)
}

// EnvName returns the environment variable that holds a credential, e.g.
// NEXTCLOUD_SELENIUM_USER_SUNET_TEST.
func EnvName(kind Kind, node, environment string) string {
	return "NEXTCLOUD_" + kinds[kind].env + "_" + strings.ToUpper(node) + "_" + strings.ToUpper(environment)
}

// EnvSource reads credentials from environment variables.
type EnvSource struct {
	Getenv func(string) string
}

// Lookup implements CredentialSource.
func (s EnvSource) Lookup(_ context.Context, kind Kind, node, environment string) (string, error) {
	if _, ok := kinds[kind]; !ok {
		return "", fmt.Errorf("unknown credential %s", kind)
	}

	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	name := EnvName(kind, node, environment)
	v := getenv(name)
	if v == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrMissingCredential, name)
	}

	return v, nil
}

// ScriptSource runs the NodeCredentials.ps1 getters through PowerShell.
type ScriptSource struct {
	Script string // path to NodeCredentials.ps1
	// Command builds the process to run; nil uses exec.CommandContext.
	Command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Lookup implements CredentialSource.
func (s ScriptSource) Lookup(ctx context.Context, kind Kind, node, environment string) (string, error) {
	info, ok := kinds[kind]
	if !ok {
		return "", fmt.Errorf("unknown credential %s", kind)
	}

	script := s.Script
	if script == "" {
		script = "./NodeCredentials.ps1"
	}

	command := s.Command
	if command == nil {
		command = exec.CommandContext
	}

	expr := fmt.Sprintf("& { . %s; %s %s %s }", script, info.getter, node, environment)
	cmd := command(ctx, "powershell", "-command", expr)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s for %s: %w: %s", info.getter, environment, node, err, strings.TrimSpace(stderr.String()))
	}

	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", fmt.Errorf("%w: %s returned nothing for %s", ErrMissingCredential, info.getter, node)
	}

	return v, nil
}

// StaticSource answers every user lookup with User and every password
// lookup with Password. It serves ad-hoc targets outside the catalog.
type StaticSource struct {
	User     string
	Password string
}

// Lookup implements CredentialSource.
func (s StaticSource) Lookup(_ context.Context, kind Kind, node, _ string) (string, error) {
	var v string
	switch kind {
	case SeleniumUser, OcsUser, MfaUser, JupyterUser:
		v = s.User
	case SeleniumPassword, SeleniumAppPassword, OcsPassword, OcsAppPassword, MfaPassword, MfaAppPassword, JupyterPassword:
		v = s.Password
	}
	if v == "" {
		return "", fmt.Errorf("%w: no static %s for %s", ErrMissingCredential, kind, node)
	}

	return v, nil
}

// DefaultSource picks the credential source for the running platform.
func DefaultSource() CredentialSource {
	if runtime.GOOS == "windows" {
		return ScriptSource{}
	}

	return EnvSource{}
}

// Credentials is a resolved user/password pair for a node.
type Credentials struct {
	User     string
	Password string
}

// WebDAVCredentials resolves the selenium user and its password (or app
// password, when useAppPassword is set) for a node.
func (t *Target) WebDAVCredentials(ctx context.Context, src CredentialSource, node string, useAppPassword bool) (Credentials, error) {
	user, err := src.Lookup(ctx, SeleniumUser, node, t.Environment)
	if err != nil {
		return Credentials{}, err
	}

	kind := SeleniumPassword
	if useAppPassword {
		kind = SeleniumAppPassword
	}

	pass, err := src.Lookup(ctx, kind, node, t.Environment)
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{User: user, Password: pass}, nil
}
