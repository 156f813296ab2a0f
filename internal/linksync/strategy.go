package linksync

import "strings"

// RenameStrategy decides whether a new link target is an existing note that
// was renamed by editing its link. pool holds the eligible note names in
// display order.
type RenameStrategy interface {
	Candidate(link string, pool []string) (string, bool)
}

// PrefixRename treats the longest eligible note whose name is a prefix of the
// link as the renamed note. Ties keep the earliest name in the pool.
type PrefixRename struct{}

// Candidate implements RenameStrategy.
func (PrefixRename) Candidate(link string, pool []string) (string, bool) {
	best := ""
	for _, name := range pool {
		if name == "" || name == link || !strings.HasPrefix(link, name) {
			continue
		}
		if len(name) > len(best) {
			best = name
		}
	}
	return best, best != ""
}

// NoRename disables the heuristic: every unknown link creates a stub.
type NoRename struct{}

// Candidate implements RenameStrategy.
func (NoRename) Candidate(string, []string) (string, bool) { return "", false }

// Strategy names accepted by StrategyByName.
const (
	StrategyPrefix = "prefix"
	StrategyNone   = "none"
)

// StrategyByName maps a configuration value to a strategy. Unknown names
// fall back to PrefixRename.
func StrategyByName(name string) RenameStrategy {
	if name == StrategyNone {
		return NoRename{}
	}
	return PrefixRename{}
}
