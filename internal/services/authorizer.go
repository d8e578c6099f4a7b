package services

import (
	"strings"

	"keuangan/internal/core"
)

// Authorizer decides whether a normalized sender may use the bot.
type Authorizer func(senderID string) bool

// AllowAll accepts every sender.
func AllowAll(string) bool { return true }

// AllowList accepts only the given senders. An empty list allows everyone.
// Entries may carry transport suffixes such as "@c.us".
func AllowList(ids []string) Authorizer {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if n := core.NormalizeSenderID(id); n != "" {
			allowed[n] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return AllowAll
	}
	return func(senderID string) bool {
		_, ok := allowed[core.NormalizeSenderID(senderID)]
		return ok
	}
}

// ParseAllowList splits a comma separated AUTHORIZED_NUMBERS value.
func ParseAllowList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
