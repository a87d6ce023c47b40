package diagnostics

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
)

// Well-known cgroup v1 locations.
const (
	CGroupMemoryDir    = "/sys/fs/cgroup/memory"
	CGroupMemoryUsage  = "/sys/fs/cgroup/memory/memory.usage_in_bytes"
	CGroupMemoryLimit  = "/sys/fs/cgroup/memory/memory.limit_in_bytes"
	CGroupCPUAcctUsage = "/sys/fs/cgroup/cpu/cpuacct.usage"
)

const linuxOSDescription = "Linux"

// Snapshot is the diagnostics view rendered for a single request.
// The cgroup fields are set only when CGroup is true.
type Snapshot struct {
	TotalAvailableMemory string       `json:"total_available_memory" yaml:"total_available_memory"`
	HostName             string       `json:"host_name" yaml:"host_name"`
	IPList               []netip.Addr `json:"ip_list" yaml:"ip_list"`
	CGroup               bool         `json:"cgroup" yaml:"cgroup"`
	MemoryUsage          string       `json:"memory_usage,omitempty" yaml:"memory_usage,omitempty"`
	MemoryLimit          string       `json:"memory_limit,omitempty" yaml:"memory_limit,omitempty"`
	CPUUsage             string       `json:"cpu_usage,omitempty" yaml:"cpu_usage,omitempty"`
	Secret               string       `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// Runtime reports process-level facts about the host.
type Runtime interface {
	// TotalAvailableMemory returns the memory available to the process in bytes.
	TotalAvailableMemory() (int64, error)
	// OSDescription returns a description such as "Linux 6.1.0-18-amd64".
	OSDescription() string
}

// Resolver looks up the local host name and its addresses.
type Resolver interface {
	Hostname() (string, error)
	LookupAddrs(ctx context.Context, host string) ([]netip.Addr, error)
}

// CGroupPaths locates the cgroup files read when a container is detected.
type CGroupPaths struct {
	MemoryDir   string
	MemoryUsage string
	MemoryLimit string
	CPUUsage    string
}

// DefaultCGroupPaths returns the cgroup v1 locations.
func DefaultCGroupPaths() CGroupPaths {
	return CGroupPaths{
		MemoryDir:   CGroupMemoryDir,
		MemoryUsage: CGroupMemoryUsage,
		MemoryLimit: CGroupMemoryLimit,
		CPUUsage:    CGroupCPUAcctUsage,
	}
}

// Builder assembles snapshots. It holds no per-request state and is safe for
// concurrent use.
type Builder struct {
	runtime  Runtime
	resolver Resolver
	fs       afero.Fs
	paths    CGroupPaths
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRuntime overrides the host runtime probe.
func WithRuntime(r Runtime) BuilderOption {
	return func(b *Builder) {
		b.runtime = r
	}
}

// WithResolver overrides the name resolver.
func WithResolver(r Resolver) BuilderOption {
	return func(b *Builder) {
		b.resolver = r
	}
}

// WithFs overrides the filesystem cgroup files are read from.
func WithFs(fs afero.Fs) BuilderOption {
	return func(b *Builder) {
		b.fs = fs
	}
}

// WithCGroupPaths overrides the cgroup file locations.
func WithCGroupPaths(p CGroupPaths) BuilderOption {
	return func(b *Builder) {
		b.paths = p
	}
}

// NewBuilder creates a builder backed by the real host unless overridden.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		runtime:  NewHostRuntime(),
		resolver: NewNetResolver(),
		fs:       afero.NewOsFs(),
		paths:    DefaultCGroupPaths(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build gathers a fresh snapshot. Any failure aborts the whole snapshot.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	total, err := b.runtime.TotalAvailableMemory()
	if err != nil {
		return nil, fmt.Errorf("reading available memory: %w", err)
	}

	snap := &Snapshot{
		TotalAvailableMemory: FormatBestUnit(total),
	}

	host, err := b.resolver.Hostname()
	if err != nil {
		return nil, core.ErrResolution("localhost", err)
	}
	snap.HostName = host

	addrs, err := b.resolver.LookupAddrs(ctx, host)
	if err != nil {
		return nil, core.ErrResolution(host, err)
	}
	snap.IPList = addrs

	snap.CGroup = b.InCGroup()
	if !snap.CGroup {
		return snap, nil
	}

	usage, err := b.readInt(b.paths.MemoryUsage)
	if err != nil {
		return nil, err
	}
	limit, err := b.readInt(b.paths.MemoryLimit)
	if err != nil {
		return nil, err
	}
	cpu, err := b.readInt(b.paths.CPUUsage)
	if err != nil {
		return nil, err
	}

	// A cgroup limit below physical memory is what the process can use.
	if limit > 0 && limit < total {
		snap.TotalAvailableMemory = FormatBestUnit(limit)
	}
	snap.MemoryUsage = FormatBestUnit(usage)
	snap.MemoryLimit = FormatBestUnit(limit)
	snap.CPUUsage = FormatMillisecond(cpu)
	return snap, nil
}

// InCGroup reports whether the process runs on Linux with the cgroup v1
// memory controller mounted.
func (b *Builder) InCGroup() bool {
	if !strings.HasPrefix(b.runtime.OSDescription(), linuxOSDescription) {
		return false
	}
	exists, err := afero.DirExists(b.fs, b.paths.MemoryDir)
	return err == nil && exists
}

func (b *Builder) readInt(path string) (int64, error) {
	line, err := readFirstLine(b.fs, path)
	if err != nil {
		return 0, core.ErrFileRead(path, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, core.ErrParse(path, line, err)
	}
	return n, nil
}

func readFirstLine(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return sc.Text(), nil
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}
