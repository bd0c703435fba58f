package model

// FounderCandidate pairs a founder name with the company domain used for
// email pattern generation. Derived from extraction or a secondary lookup;
// never persisted directly.
type FounderCandidate struct {
	Name     string `json:"name"`
	LinkedIn string `json:"linkedin,omitempty"`
	Role     string `json:"role,omitempty"`
	Domain   string `json:"domain"`
}

// EmailCandidate is a generated, not-yet-verified address guess ranked by
// a population-frequency prior in (0,1].
type EmailCandidate struct {
	Address         string  `json:"address"`
	PatternID       string  `json:"pattern_id"`
	PriorConfidence float64 `json:"prior_confidence"`
}
