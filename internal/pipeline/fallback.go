package pipeline

import "github.com/tjfontaine/hookgate/internal/core/domain"

// ExtractFallback returns the first Fallback decision in evaluation order.
func ExtractFallback(decisions []domain.Decision) (domain.Decision, bool) {
	for _, d := range decisions {
		if d.IsFallback() {
			return d, true
		}
	}
	return domain.Decision{}, false
}

// CollectFallbacks returns every Fallback decision in evaluation order.
func CollectFallbacks(decisions []domain.Decision) []domain.Decision {
	var out []domain.Decision
	for _, d := range decisions {
		if d.IsFallback() {
			out = append(out, d)
		}
	}
	return out
}
