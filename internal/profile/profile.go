package profile

import (
	"fmt"
	"strings"
)

// Info describes one model quality tier accepted by the worker.
// The trade-offs are advisory; nothing enforces them.
type Info struct {
	ID          string // tier name passed to the worker (e.g., "small")
	Name        string // display name
	Params      string // parameter count
	Memory      string // approximate peak memory
	TenMinutes  string // processing time for ten minutes of audio
	Description string // recommended use
}

// Default is the tier used when the caller does not choose one.
const Default = "small"

// tiers ordered from fastest to most accurate
var tiers = []Info{
	{ID: "tiny", Name: "Tiny", Params: "39M", Memory: "~1GB", TenMinutes: "~1 min", Description: "quick tests, constrained machines, accuracy not critical"},
	{ID: "base", Name: "Base", Params: "74M", Memory: "~1.5GB", TenMinutes: "~2 min", Description: "everyday conversations, balanced accuracy and speed"},
	{ID: "small", Name: "Small", Params: "244M", Memory: "~2GB", TenMinutes: "~4 min", Description: "recommended default, good balance"},
	{ID: "medium", Name: "Medium", Params: "769M", Memory: "~5GB", TenMinutes: "~8 min", Description: "multi-speaker meetings, noisy recordings"},
	{ID: "large", Name: "Large", Params: "1550M", Memory: "~10GB", TenMinutes: "~15 min", Description: "highest accuracy, professional use"},
}

var byID = func() map[string]Info {
	m := make(map[string]Info, len(tiers))
	for _, t := range tiers {
		m[t.ID] = t
	}
	return m
}()

// Get returns the tier with the given id.
func Get(id string) (Info, bool) {
	info, ok := byID[id]
	return info, ok
}

// Valid reports whether id names a known tier.
func Valid(id string) bool {
	_, ok := byID[id]
	return ok
}

// List returns all tiers, fastest first.
func List() []Info {
	result := make([]Info, len(tiers))
	copy(result, tiers)
	return result
}

// IDs returns the tier names in catalog order.
func IDs() []string {
	ids := make([]string, len(tiers))
	for i, t := range tiers {
		ids[i] = t.ID
	}
	return ids
}

// Parse normalizes id and checks it against the catalog.
func Parse(id string) (Info, error) {
	norm := strings.ToLower(strings.TrimSpace(id))
	if norm == "" {
		norm = Default
	}
	info, ok := byID[norm]
	if !ok {
		return Info{}, fmt.Errorf("unknown model profile %q (must be one of %s)", id, strings.Join(IDs(), ", "))
	}
	return info, nil
}

// Summary is a one-line description of the tier's trade-off.
func (i Info) Summary() string {
	return fmt.Sprintf("%s params, %s memory, %s per 10 min of audio: %s", i.Params, i.Memory, i.TenMinutes, i.Description)
}
