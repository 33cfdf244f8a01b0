// Package security counts failed security events and flags bursts.
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var alertCounterScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// AlertResult contains alert evaluation output.
type AlertResult struct {
	Triggered bool
	Count     int64
	Threshold int64
	Window    time.Duration
}

// AuditAlerter aggregates security events per client IP in Redis so the
// count is shared by every portal instance.
type AuditAlerter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewAuditAlerter returns nil when client is nil; a nil alerter observes
// nothing.
func NewAuditAlerter(client redis.UniversalClient, prefix string) *AuditAlerter {
	if client == nil {
		return nil
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "nemsutalks:alerts"
	}
	return &AuditAlerter{client: client, prefix: prefix, now: time.Now}
}

// Observe records a security event. Triggered is set once per window, on
// the event that reaches the threshold.
func (a *AuditAlerter) Observe(ctx context.Context, event, outcome, ip string) (AlertResult, error) {
	result := AlertResult{}
	if a == nil {
		return result, nil
	}
	threshold, window, ok := alertRule(event, outcome)
	if !ok {
		return result, nil
	}
	windowMs := window.Milliseconds()
	slot := a.now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:%s:%s:%s:%d", a.prefix, sanitizeSegment(event), sanitizeSegment(outcome), sanitizeSegment(ip), slot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := alertCounterScript.Run(ctx, a.client, []string{key}, windowMs).Int64()
	if err != nil {
		return result, err
	}
	result.Count = count
	result.Threshold = threshold
	result.Window = window
	result.Triggered = count == threshold
	return result, nil
}

type rule struct {
	threshold int64
	window    time.Duration
}

// Any event that is rate limited shares one rule.
var rateLimitedRule = rule{threshold: 20, window: time.Minute}

// failureRules are keyed by audit event name and apply to "fail" outcomes.
var failureRules = map[string]rule{
	"portal.login":           {threshold: 10, window: 5 * time.Minute},
	"portal.register":        {threshold: 10, window: 5 * time.Minute},
	"portal.logout":          {threshold: 15, window: 5 * time.Minute},
	"portal.password_change": {threshold: 15, window: 5 * time.Minute},
	"portal.authorize":       {threshold: 25, window: 5 * time.Minute},
	"portal.admin.authorize": {threshold: 25, window: 5 * time.Minute},
}

func alertRule(event, outcome string) (int64, time.Duration, bool) {
	var r rule
	switch strings.TrimSpace(outcome) {
	case "rate_limited":
		r = rateLimitedRule
	case "fail":
		var ok bool
		if r, ok = failureRules[strings.TrimSpace(event)]; !ok {
			return 0, 0, false
		}
	default:
		return 0, 0, false
	}
	return r.threshold, r.window, true
}

func sanitizeSegment(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}
	return strings.NewReplacer(":", "_", "|", "_", " ", "_").Replace(in)
}
