package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
)

// WhoisRecord holds the fields extracted from a registry WHOIS reply.
type WhoisRecord struct {
	NetName      string `json:"netname,omitempty"`
	InetNum      string `json:"inetnum,omitempty"`
	AutNum       string `json:"aut_num,omitempty"`
	OrgName      string `json:"org_name,omitempty"`
	Country      string `json:"country,omitempty"`
	AbuseMailbox string `json:"abuse_mailbox,omitempty"`
}

// WhoisFunc looks up the WHOIS record of an entity.
type WhoisFunc func(ctx context.Context, entity Entity) (*WhoisRecord, error)

// NewWhoisLookup queries server over port 43. A zero timeout keeps the
// client default.
func NewWhoisLookup(server string, timeout time.Duration) WhoisFunc {
	client := whois.NewClient()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	type reply struct {
		raw string
		err error
	}
	return func(ctx context.Context, entity Entity) (*WhoisRecord, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done := make(chan reply, 1)
		go func() {
			raw, err := client.Whois(entity.Value, server)
			done <- reply{raw: raw, err: err}
		}()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-done:
			if r.err != nil {
				return nil, fmt.Errorf("whois %s: %w", entity.Value, r.err)
			}
			return parseWhois(r.raw), nil
		}
	}
}

// parseWhois tolerates the key spellings of RIPE, ARIN, APNIC, LACNIC and AFRINIC.
func parseWhois(raw string) *WhoisRecord {
	lines := strings.Split(raw, "\n")
	return &WhoisRecord{
		NetName:      firstMatch(lines, "netname", "NetName"),
		InetNum:      firstMatch(lines, "inetnum", "inet6num", "NetRange", "CIDR"),
		AutNum:       firstMatch(lines, "aut-num", "OriginAS"),
		OrgName:      firstMatch(lines, "org-name", "OrgName", "as-name", "Organization"),
		Country:      firstMatch(lines, "country", "Country"),
		AbuseMailbox: firstMatch(lines, "abuse-mailbox", "OrgAbuseEmail"),
	}
}

// firstMatch returns the value of the first line whose key matches one of
// keys, ignoring case. Comment lines and empty values are skipped.
func firstMatch(lines []string, keys ...string) string {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '%' || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		for _, k := range keys {
			if strings.EqualFold(strings.TrimSpace(key), k) {
				return value
			}
		}
	}
	return ""
}
