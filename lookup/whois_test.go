package lookup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const ripeInetnum = `% This is the RIPE Database query service.
% The objects are in RPSL format.

inetnum:        193.0.0.0 - 193.0.23.255
netname:        RIPE-NCC
descr:          RIPE Network Coordination Centre
org:            ORG-RIEN1-RIPE
country:        NL
abuse-mailbox:  abuse@ripe.net
status:         ASSIGNED PA

organisation:   ORG-RIEN1-RIPE
org-name:       Reseaux IP Europeens Network Coordination Centre (RIPE NCC)
country:        DE

route:          193.0.0.0/21
origin:         AS3333
`

const arinNet = `#
# ARIN WHOIS data and services are subject to the Terms of Use
#

NetRange:       8.8.8.0 - 8.8.8.255
CIDR:           8.8.8.0/24
NetName:        GOGL
OriginAS:
Organization:   Google LLC (GOGL)
Country:        US
OrgAbuseEmail:  network-abuse@google.com
`

func TestParseWhoisRIPE(t *testing.T) {
	record := parseWhois(ripeInetnum)
	assert.Equal(t, &WhoisRecord{
		NetName:      "RIPE-NCC",
		InetNum:      "193.0.0.0 - 193.0.23.255",
		OrgName:      "Reseaux IP Europeens Network Coordination Centre (RIPE NCC)",
		Country:      "NL",
		AbuseMailbox: "abuse@ripe.net",
	}, record)
}

func TestParseWhoisARIN(t *testing.T) {
	record := parseWhois(arinNet)
	assert.Equal(t, "GOGL", record.NetName)
	assert.Equal(t, "8.8.8.0 - 8.8.8.255", record.InetNum)
	assert.Empty(t, record.AutNum)
	assert.Equal(t, "Google LLC (GOGL)", record.OrgName)
	assert.Equal(t, "US", record.Country)
	assert.Equal(t, "network-abuse@google.com", record.AbuseMailbox)
}

func TestParseWhoisAutNum(t *testing.T) {
	record := parseWhois("aut-num:        AS3333\nas-name:        RIPE-NCC-AS\n")
	assert.Equal(t, "AS3333", record.AutNum)
	assert.Equal(t, "RIPE-NCC-AS", record.OrgName)
}

func TestParseWhoisEmpty(t *testing.T) {
	assert.Equal(t, &WhoisRecord{}, parseWhois("% No entries found for the selected source(s).\n"))
}

func TestWhoisLookupHonoursContext(t *testing.T) {
	// 192.0.2.1 is TEST-NET-1; the dial never completes before the context ends.
	lookup := NewWhoisLookup("192.0.2.1", 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lookup(ctx, Entity{Value: "193.0.6.139"})
	assert.ErrorIs(t, err, context.Canceled)
}
