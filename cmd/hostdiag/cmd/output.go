package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	colorTitle = lipgloss.Color("#7C3AED")
	colorLabel = lipgloss.Color("#06B6D4")
	colorMuted = lipgloss.Color("#9CA3AF")
)

type textStyles struct {
	title lipgloss.Style
	label lipgloss.Style
	muted lipgloss.Style
}

func newTextStyles(w io.Writer, plain bool) textStyles {
	if plain {
		return textStyles{title: lipgloss.NewStyle(), label: lipgloss.NewStyle(), muted: lipgloss.NewStyle()}
	}
	r := lipgloss.NewRenderer(w)
	return textStyles{
		title: r.NewStyle().Bold(true).Foreground(colorTitle),
		label: r.NewStyle().Foreground(colorLabel),
		muted: r.NewStyle().Foreground(colorMuted),
	}
}

// renderSnapshot encodes snap in format. Host metrics are only part of the
// text output.
func renderSnapshot(w io.Writer, format string, snap *diagnostics.Snapshot, metrics *diagnostics.SystemMetrics, plain bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case formatText, "":
		writeText(w, snap, metrics, newTextStyles(w, plain))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func writeText(w io.Writer, snap *diagnostics.Snapshot, metrics *diagnostics.SystemMetrics, st textStyles) {
	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", st.label.Render(fmt.Sprintf("%-24s", label+":")), value)
	}

	fmt.Fprintln(w, st.title.Render("Host diagnostics"))
	row("Host name", snap.HostName)
	row("Total available memory", snap.TotalAvailableMemory)
	addrs := make([]string, 0, len(snap.IPList))
	for _, a := range snap.IPList {
		addrs = append(addrs, a.String())
	}
	row("IP addresses", strings.Join(addrs, ", "))
	row("Running in a cgroup", fmt.Sprint(snap.CGroup))
	if snap.CGroup {
		row("Memory usage", snap.MemoryUsage)
		row("Memory limit", snap.MemoryLimit)
		row("CPU usage", snap.CPUUsage)
	}
	if snap.Secret != "" {
		row("Secret", snap.Secret)
	}

	if metrics == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.title.Render("System"))
	row("Platform", metrics.Platform)
	row("Kernel", metrics.KernelVersion)
	row("CPU", fmt.Sprintf("%s %s", metrics.CPUModel,
		st.muted.Render(fmt.Sprintf("(%d cores, %d threads)", metrics.CPUCores, metrics.CPUThreads))))
	row("Memory", fmt.Sprintf("%s / %s %s", metrics.MemUsed, metrics.MemTotal,
		st.muted.Render(fmt.Sprintf("(%.1f%%)", metrics.MemPercent))))
	row("Load average", fmt.Sprintf("%.2f %.2f %.2f", metrics.LoadAvg1, metrics.LoadAvg5, metrics.LoadAvg15))
	row("Uptime", metrics.Uptime.Truncate(time.Second).String())
}

// File modes for --output. Secret output is readable by the owner only.
const (
	snapshotFileMode os.FileMode = 0o644
	secretFileMode   os.FileMode = 0o600
)

// writeOutput writes to path atomically with perm, or to w when path is empty.
func writeOutput(w io.Writer, path string, perm os.FileMode, render func(io.Writer) error) error {
	if path == "" {
		return render(w)
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	var opts []renameio.Option
	if perm&0o077 == 0 {
		// Owner-only files never keep wider bits from the file they replace.
		opts = append(opts, renameio.WithStaticPermissions(perm))
	}
	if err := renameio.WriteFile(path, buf.Bytes(), perm, opts...); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
