package redis

import "strings"

const keyNamespace = "bz"

// Key prefixes under the namespace. Changing one orphans every live key
// written with the old value.
const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	cronLockPrefix    = "cron-worker"
)

// key joins parts under the namespace with ':' and skips blank parts.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey is where the cached response for one idempotent request lives.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key(idempotencyPrefix, scope, id)
}

// RateLimitKey names the fixed-window counter for scope.
func (c *Client) RateLimitKey(scope string) string {
	return key(rateLimitPrefix, scope)
}

// CronLockKey is the lease held by whichever worker runs loop in env.
func (c *Client) CronLockKey(env, loop string) string {
	return key(cronLockPrefix, "lock", env, loop)
}
