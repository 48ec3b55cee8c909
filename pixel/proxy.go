package pixel

import (
	"fmt"
	"strconv"
	"strings"
)

// Proxy is a power-of-two resolution reduction level.
type Proxy int

// Proxy levels.
const (
	ProxyNone Proxy = iota
	Proxy1_2
	Proxy1_4
	Proxy1_8
)

var proxyLabels = [...]string{"None", "1/2", "1/4", "1/8"}

// String returns the proxy label.
func (p Proxy) String() string {
	if p < ProxyNone || p > Proxy1_8 {
		return "Proxy(" + strconv.Itoa(int(p)) + ")"
	}
	return proxyLabels[p]
}

// Scale returns the reduction factor (1, 2, 4 or 8).
func (p Proxy) Scale() int {
	if p <= ProxyNone {
		return 1
	}
	return 1 << uint(p)
}

// ParseProxy parses "none", "1/2", "1/4", "1/8" or a level number.
func ParseProxy(s string) (Proxy, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, label := range proxyLabels {
		if strings.ToLower(label) == key {
			return Proxy(i), nil
		}
	}
	if level, err := strconv.Atoi(key); err == nil && level >= 0 && level <= int(Proxy1_8) {
		return Proxy(level), nil
	}
	return ProxyNone, fmt.Errorf("invalid proxy %q", s)
}

// ProxyScale reduces a size by the proxy level, rounding up.
func ProxyScale(size Size, proxy Proxy) Size {
	if proxy <= ProxyNone {
		return size
	}
	scale := proxy.Scale()
	return Size{
		W: (size.W + scale - 1) / scale,
		H: (size.H + scale - 1) / scale,
	}
}
