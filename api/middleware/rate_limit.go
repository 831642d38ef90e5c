package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type rateCounter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// SubjectFunc derives the value a rule counts against. An empty subject skips the rule.
type SubjectFunc func(r *http.Request) (string, error)

// RateRule caps how often one subject may hit a surface inside the policy window.
type RateRule struct {
	Scope   string
	Limit   int
	Subject SubjectFunc
}

// RatePolicy groups the rules applied to a single surface such as login or bargain proposals.
type RatePolicy struct {
	Name   string
	Window time.Duration
	Rules  []RateRule
}

func (p RatePolicy) active() []RateRule {
	if p.Window <= 0 {
		return nil
	}
	rules := make([]RateRule, 0, len(p.Rules))
	for _, rule := range p.Rules {
		if rule.Limit > 0 && rule.Subject != nil {
			rules = append(rules, rule)
		}
	}
	return rules
}

func (p RatePolicy) scope(rule, subject string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s:%s:%s", name, rule, subject)
}

// LoginPolicy throttles credential attempts by client address and by email.
func LoginPolicy(window time.Duration, ipLimit, emailLimit int) RatePolicy {
	return RatePolicy{
		Name:   "login",
		Window: window,
		Rules: []RateRule{
			{Scope: "ip", Limit: ipLimit, Subject: ClientIPSubject},
			{Scope: "email", Limit: emailLimit, Subject: JSONFieldSubject("email")},
		},
	}
}

// RegisterPolicy throttles sign ups the same way login is throttled.
func RegisterPolicy(window time.Duration, ipLimit, emailLimit int) RatePolicy {
	policy := LoginPolicy(window, ipLimit, emailLimit)
	policy.Name = "register"
	return policy
}

// ActorPolicy throttles an authenticated surface per user.
func ActorPolicy(name string, window time.Duration, limit int) RatePolicy {
	return RatePolicy{
		Name:   name,
		Window: window,
		Rules:  []RateRule{{Scope: "user", Limit: limit, Subject: ActorSubject}},
	}
}

// RateLimit enforces every active rule of the policy before calling next.
func RateLimit(policy RatePolicy, store rateCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		rules := policy.active()
		if len(rules) == 0 || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, rule := range rules {
				subject, err := rule.Subject(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				if subject == "" {
					continue
				}
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.scope(rule.Scope, subject)), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(rule.Limit) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":         policy.Name,
							"scope":          rule.Scope,
							"subject":        subject,
							"attempts":       count,
							"limit":          rule.Limit,
							"window_seconds": int(policy.Window.Seconds()),
						}), "rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPSubject prefers proxy headers and falls back to the socket address.
func ClientIPSubject(r *http.Request) (string, error) {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip, nil
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip, nil
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host, nil
	}
	return r.RemoteAddr, nil
}

// JSONFieldSubject hashes a normalized string field of the JSON body and restores the body for next.
func JSONFieldSubject(field string) SubjectFunc {
	return func(r *http.Request) (string, error) {
		if r.Body == nil {
			return "", nil
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", nil
		}
		value, _ := payload[field].(string)
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			return "", nil
		}
		sum := sha256.Sum256([]byte(value))
		return hex.EncodeToString(sum[:]), nil
	}
}

// ActorSubject counts against the authenticated user seeded by Auth.
func ActorSubject(r *http.Request) (string, error) {
	return UserIDFromContext(r.Context()), nil
}
