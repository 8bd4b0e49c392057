package tcp

import (
	"net"
	"net/netip"
	"strings"

	"github.com/cockroachdb/errors"
)

// Protocol 监听使用的 IP 协议族
type Protocol string

const (
	IPv4 Protocol = "ipv4"
	IPv6 Protocol = "ipv6"
)

func (p Protocol) String() string {
	return string(p)
}

// UnmarshalText 实现 encoding.TextUnmarshaler，配置中可以写 ipv4、IPv6、tcp4 等形式
func (p *Protocol) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "ipv4", "ip4", "tcp4":
		*p = IPv4
	case "ipv6", "ip6", "tcp6":
		*p = IPv6
	default:
		return errors.Mark(errors.Newf("unknown protocol %q", text), ErrInvalidAddress)
	}
	return nil
}

// Endpoint 解析后的监听端点
type Endpoint struct {
	// Network 为 tcp4 或 tcp6
	Network string
	Addr    netip.AddrPort
}

func (e Endpoint) String() string {
	return e.Addr.String()
}

// TCPAddr 转换为 *net.TCPAddr
func (e Endpoint) TCPAddr() *net.TCPAddr {
	return net.TCPAddrFromAddrPort(e.Addr)
}

// ResolveProtocol 解析协议族通配地址：IPv4 为 0.0.0.0，IPv6 为 ::
func ResolveProtocol(p Protocol, port int) (Endpoint, error) {
	if err := checkPort(port); err != nil {
		return Endpoint{}, err
	}

	switch p {
	case IPv4:
		return Endpoint{Network: "tcp4", Addr: netip.AddrPortFrom(netip.IPv4Unspecified(), uint16(port))}, nil
	case IPv6:
		return Endpoint{Network: "tcp6", Addr: netip.AddrPortFrom(netip.IPv6Unspecified(), uint16(port))}, nil
	default:
		return Endpoint{}, errors.Mark(errors.Newf("unknown protocol %q", string(p)), ErrInvalidAddress)
	}
}

// ResolveAddress 解析 IP 字面量，不做 DNS 解析
func ResolveAddress(address string, port int) (Endpoint, error) {
	if err := checkPort(port); err != nil {
		return Endpoint{}, err
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(address))
	if err != nil {
		return Endpoint{}, errors.Mark(errors.Wrapf(err, "resolve address %q", address), ErrInvalidAddress)
	}

	network := "tcp6"
	if addr.Is4() {
		network = "tcp4"
	}
	return Endpoint{Network: network, Addr: netip.AddrPortFrom(addr, uint16(port))}, nil
}

// Resolve 根据配置解析端点，Address 优先于 Protocol，两者都为空时使用 IPv4
func Resolve(cfg *ServerConfig) (Endpoint, error) {
	if cfg.Address != "" {
		return ResolveAddress(cfg.Address, cfg.Port)
	}
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = IPv4
	}
	return ResolveProtocol(protocol, cfg.Port)
}

func checkPort(port int) error {
	if port < 0 || port > 65535 {
		return errors.Mark(errors.Newf("port %d out of range", port), ErrInvalidAddress)
	}
	return nil
}
