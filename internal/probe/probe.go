// Package probe runs ICMP echo probes through the system ping executable and
// parses its output into structured replies.
package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/luizchaves/host-monitor/internal/domain"
)

// DefaultReplyTimeout is how long ping waits for each reply.
const DefaultReplyTimeout = time.Second

// Result is the outcome of one probe run.
type Result struct {
	Alive  bool
	Output string
	ICMPs  []domain.ICMP
	Stats  domain.PingStats
}

// Resolver looks up the addresses of a host name. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

type commandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner executes ping against a single address.
type Runner struct {
	binary       string
	replyTimeout time.Duration
	resolver     Resolver
	run          commandFunc
	now          func() time.Time
}

// NewRunner creates a Runner invoking binary. A non-positive replyTimeout
// selects DefaultReplyTimeout.
func NewRunner(binary string, replyTimeout time.Duration) *Runner {
	if binary == "" {
		binary = "ping"
	}
	if replyTimeout <= 0 {
		replyTimeout = DefaultReplyTimeout
	}
	return &Runner{
		binary:       binary,
		replyTimeout: replyTimeout,
		resolver:     net.DefaultResolver,
		run:          runCommand,
		now:          time.Now,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Probe sends count echo requests to address.
//
// An address that does not resolve, or a ping that cannot run, is a probe
// error. A host that resolves but never answers is reported as Alive false
// with a nil error.
func (r *Runner) Probe(ctx context.Context, address string, count int) (*Result, error) {
	if count < 1 {
		return nil, domain.NewValidationError("count", "count must be positive")
	}

	if net.ParseIP(address) == nil {
		addrs, err := r.resolver.LookupIPAddr(ctx, address)
		if err != nil {
			return nil, domain.NewProbeError(fmt.Sprintf("cannot resolve %s", address), err)
		}
		if len(addrs) == 0 {
			return nil, domain.NewProbeError(fmt.Sprintf("cannot resolve %s", address), nil)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.deadline(count))
	defer cancel()

	args := []string{"-c", strconv.Itoa(count), "-W", strconv.Itoa(r.waitSeconds()), address}
	start := r.now()
	out, err := r.run(ctx, r.binary, args...)
	elapsed := r.now().Sub(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewProbeError(fmt.Sprintf("ping %s timed out", address), ctx.Err())
		}
		// iputils and busybox ping exit 1 when no reply arrived.
		if exitCode(err) != 1 {
			return nil, domain.NewProbeError(fmt.Sprintf("ping %s failed", address), err)
		}
	}

	res := ParseOutput(string(out))
	if res.Stats.Time == 0 {
		res.Stats.Time = float64(elapsed.Milliseconds())
	}
	res.Alive = err == nil && len(res.ICMPs) > 0
	return res, nil
}

func (r *Runner) waitSeconds() int {
	return int(math.Ceil(r.replyTimeout.Seconds()))
}

// deadline bounds the whole run: ping sends one request per second and
// waits replyTimeout for the last one.
func (r *Runner) deadline(count int) time.Duration {
	return time.Duration(count)*time.Second + r.replyTimeout + 5*time.Second
}

func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}
