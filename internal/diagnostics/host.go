package diagnostics

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostRuntime implements Runtime on top of gopsutil.
type HostRuntime struct{}

// NewHostRuntime creates a runtime probe for the current host.
func NewHostRuntime() *HostRuntime {
	return &HostRuntime{}
}

// TotalAvailableMemory returns total physical memory in bytes.
func (HostRuntime) TotalAvailableMemory() (int64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return clampInt64(vm.Total), nil
}

// OSDescription returns the OS family followed by its kernel or platform
// version, e.g. "Linux 6.1.0-18-amd64".
func (HostRuntime) OSDescription() string {
	info, err := host.Info()
	if err != nil {
		return osFamily(runtime.GOOS)
	}
	return describeOS(info.OS, info.KernelVersion, info.PlatformVersion)
}

func describeOS(goos, kernel, platform string) string {
	family := osFamily(goos)
	switch goos {
	case "windows":
		if platform != "" {
			return fmt.Sprintf("%s %s", family, platform)
		}
	default:
		if kernel != "" {
			return fmt.Sprintf("%s %s", family, kernel)
		}
	}
	return family
}

func osFamily(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Microsoft Windows"
	case "freebsd":
		return "FreeBSD"
	default:
		return goos
	}
}

// NetResolver implements Resolver with the operating system's resolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver creates a resolver using net.DefaultResolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

// Hostname returns the kernel's host name.
func (r *NetResolver) Hostname() (string, error) {
	return os.Hostname()
}

// LookupAddrs resolves host to its IPv4 and IPv6 addresses in resolver order.
func (r *NetResolver) LookupAddrs(ctx context.Context, host string) ([]netip.Addr, error) {
	addrs, err := r.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	for i, a := range addrs {
		addrs[i] = a.Unmap()
	}
	return addrs, nil
}
