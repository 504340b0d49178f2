package governance

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes the target a walkthrough is about to drive.
type Request struct {
	TargetURL string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates targets against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine allows only listed hosts and rejects any URL matching a
// deny pattern. An empty allow list allows every host.
type DefaultPolicyEngine struct {
	AllowedHosts map[string]bool
	DeniedRegex  []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		AllowedHosts: make(map[string]bool),
		DeniedRegex:  make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) AllowHost(host string) {
	e.AllowedHosts[strings.ToLower(strings.Trim(host, "[]"))] = true
}

func (e *DefaultPolicyEngine) DenyPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	u, err := url.Parse(req.TargetURL)
	if err != nil {
		return Result{}, fmt.Errorf("invalid target url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Scheme '%s' is not a web target", u.Scheme),
		}, nil
	}

	host := strings.ToLower(u.Hostname())
	if len(e.AllowedHosts) > 0 && !e.AllowedHosts[host] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Host '%s' is not in the allowed host list", host),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.TargetURL) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Target matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
