package probe

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/luizchaves/host-monitor/internal/domain"
)

var (
	replyRe   = regexp.MustCompile(`(?:icmp_)?seq=(\d+) ttl=(\d+) time=([\d.]+) ms`)
	summaryRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
	totalRe   = regexp.MustCompile(`, time (\d+)ms`)
)

// ParseOutput extracts echo replies and the summary line from ping output.
// Lines it does not recognize are ignored. Alive is left false.
func ParseOutput(output string) *Result {
	res := &Result{Output: output, ICMPs: []domain.ICMP{}}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		// Duplicated replies repeat a sequence number already counted.
		if strings.HasSuffix(line, "(DUP!)") {
			continue
		}
		m := replyRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		seq, _ := strconv.Atoi(m[1])
		ttl, _ := strconv.Atoi(m[2])
		rtt, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		res.ICMPs = append(res.ICMPs, domain.ICMP{Seq: seq, TTL: ttl, Time: rtt})
	}

	if m := summaryRe.FindStringSubmatch(output); m != nil {
		res.Stats.Transmitted, _ = strconv.Atoi(m[1])
		res.Stats.Received, _ = strconv.Atoi(m[2])
	}
	if m := totalRe.FindStringSubmatch(output); m != nil {
		total, _ := strconv.ParseFloat(m[1], 64)
		res.Stats.Time = total
	}
	return res
}
