package lookup

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Entity types understood by the registry's resource parameter.
const (
	TypeIPv4 = "IPv4"
	TypeIPv6 = "IPv6"
	TypeCIDR = "cidr"
	TypeASN  = "asn"
)

// Entity is an identifier submitted for lookup.
type Entity struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// ParseEntity classifies value as an IP address, prefix or AS number.
// AS numbers are normalized to the "AS<n>" form.
func ParseEntity(value string) (Entity, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Entity{}, fmt.Errorf("empty entity")
	}

	if addr, err := netip.ParseAddr(v); err == nil {
		if addr.Is4() || addr.Is4In6() {
			return Entity{Value: addr.Unmap().String(), Type: TypeIPv4}, nil
		}
		return Entity{Value: addr.String(), Type: TypeIPv6}, nil
	}
	if prefix, err := netip.ParsePrefix(v); err == nil {
		return Entity{Value: prefix.Masked().String(), Type: TypeCIDR}, nil
	}

	digits := v
	if len(digits) > 2 && strings.EqualFold(digits[:2], "AS") {
		digits = digits[2:]
	}
	if n, err := strconv.ParseUint(digits, 10, 32); err == nil {
		return Entity{Value: "AS" + strconv.FormatUint(n, 10), Type: TypeASN}, nil
	}

	return Entity{}, fmt.Errorf("unsupported entity %q: expected IP address, prefix or AS number", v)
}
