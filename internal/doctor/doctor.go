// Package doctor runs runtime readiness diagnostics for config, backend, and audio.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/kaiwa/internal/audio"
	"github.com/rbright/kaiwa/internal/config"
	"github.com/rbright/kaiwa/internal/ipc"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Selector resolves the capture source; audio.SelectSource in production.
type Selector func(ctx context.Context, input, fallback string) (audio.Selection, error)

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, selectSource Selector) Report {
	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkBackend(ctx, cfg.Config.API.BaseURL))
	if selectSource != nil {
		checks = append(checks, checkAudioSelection(ctx, cfg.Config, selectSource))
	}
	checks = append(checks, checkSocketDir(ipc.RuntimeSocketPath()))
	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("no file at %q; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkBackend treats any HTTP answer below 500 as reachable: the base path
// itself need not be routed.
func checkBackend(ctx context.Context, baseURL string) Check {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Check{Name: "api.reachable", Pass: false, Message: "api.base_url is empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return Check{Name: "api.reachable", Pass: false, Message: fmt.Sprintf("invalid url: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: "api.reachable", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: "api.reachable", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
	}
	return Check{Name: "api.reachable", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
}

// checkAudioSelection runs live source selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config, selectSource Selector) Check {
	selection, err := selectSource(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.source", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Source.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.source", Pass: true, Message: message}
}

func checkSocketDir(socketPath string) Check {
	dir := filepath.Dir(socketPath)
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return Check{Name: "ipc.socket", Pass: true, Message: fmt.Sprintf("%s will be created", dir)}
	case err != nil:
		return Check{Name: "ipc.socket", Pass: false, Message: err.Error()}
	case !info.IsDir():
		return Check{Name: "ipc.socket", Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	return Check{Name: "ipc.socket", Pass: true, Message: socketPath}
}
