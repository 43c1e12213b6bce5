package pipeline

import (
	"sort"

	"chemdesk/internal"
	"chemdesk/internal/config"
	"chemdesk/internal/registry"
	"chemdesk/internal/util"
)

type Resolver struct {
	cfg   config.Config
	index *registry.Index
}

func NewResolver(cfg config.Config, compounds []internal.CompoundRecord, variants []internal.VariantEntry) *Resolver {
	return &Resolver{cfg: cfg, index: registry.BuildIndex(compounds, variants)}
}

// Resolve maps one input name to its canonical form. The ladder is: unique
// code hit, canonical-name hit (idempotent, confidence 1), unique variant
// hit, then fuzzy candidates against the thresholds. A miss keeps the input
// unchanged as the normalized output, always.
func (r *Resolver) Resolve(item NormalizedItem) internal.ResolutionResult {
	name := item.RawLine
	if item.Name != nil {
		name = *item.Name
	}
	normalized := item.NormalizedName
	if normalized == "" {
		normalized = util.NormalizeName(item.RawLine)
	}

	if util.LooksLikeCode(name) {
		codeCandidate := util.NormalizeCode(name)
		byCode := r.index.ByCode[codeCandidate]
		if len(byCode) == 1 {
			return r.adjustForInvalidAmount(item, resolved(internal.ReasonCode, 0.99, byCode[0]))
		}
		if len(byCode) > 1 {
			return internal.ResolutionResult{
				Status:     internal.ResolveReview,
				Confidence: 0.80,
				Reason:     internal.ReasonCode,
				Normalized: name,
				Candidates: toCandidates(byCode, 0.80),
			}
		}
	}

	if canonicals := r.index.ByCanonical[normalized]; len(canonicals) == 1 {
		return r.adjustForInvalidAmount(item, resolved(internal.ReasonCanonical, 1.0, canonicals[0]))
	}

	byVariant := r.index.ByVariant[normalized]
	if len(byVariant) == 1 {
		return r.adjustForInvalidAmount(item, resolved(internal.ReasonVariant, 0.98, byVariant[0]))
	}
	if len(byVariant) > 1 {
		return internal.ResolutionResult{
			Status:     internal.ResolveReview,
			Confidence: 0.78,
			Reason:     internal.ReasonVariant,
			Normalized: name,
			Candidates: toCandidates(byVariant, 0.78),
		}
	}

	candidates := r.rankCandidates(normalized)
	if len(candidates) == 0 {
		return internal.ResolutionResult{
			Status:     internal.ResolveNotFound,
			Confidence: 0,
			Reason:     internal.ReasonNone,
			Normalized: name,
			Candidates: []internal.ResolutionCandidate{},
		}
	}

	top1 := candidates[0]
	gap := top1.Score
	if len(candidates) > 1 {
		gap = top1.Score - candidates[1].Score
	}

	var result internal.ResolutionResult
	if top1.Score >= r.cfg.ResolveOKThreshold && gap >= r.cfg.ResolveGapThreshold {
		result = internal.ResolutionResult{
			Status:     internal.ResolveOK,
			Confidence: top1.Score,
			Reason:     internal.ReasonFuzzy,
			Normalized: top1.Canonical,
			Canonical:  util.StringPtr(top1.Canonical),
			Candidates: candidates,
		}
	} else if top1.Score >= r.cfg.ResolveReviewThreshold {
		result = internal.ResolutionResult{
			Status:     internal.ResolveReview,
			Confidence: top1.Score,
			Reason:     internal.ReasonFuzzy,
			Normalized: name,
			Canonical:  util.StringPtr(top1.Canonical),
			Candidates: candidates,
		}
	} else {
		result = internal.ResolutionResult{
			Status:     internal.ResolveNotFound,
			Confidence: top1.Score,
			Reason:     internal.ReasonNone,
			Normalized: name,
			Candidates: candidates,
		}
	}

	return r.adjustForInvalidAmount(item, result)
}

// A stated amount of zero or less means the line was parsed oddly; flag the
// resolution for review rather than trusting it.
func (r *Resolver) adjustForInvalidAmount(item NormalizedItem, base internal.ResolutionResult) internal.ResolutionResult {
	if item.Amount == nil || *item.Amount > 0 {
		return base
	}
	base.Status = internal.ResolveReview
	if base.Confidence > 0.7 {
		base.Confidence = 0.7
	}
	return base
}

func (r *Resolver) rankCandidates(query string) []internal.ResolutionCandidate {
	queryTokens := util.Tokenize(query)
	canonicals := map[string]struct{}{}

	for _, token := range queryTokens {
		for canonical := range r.index.TokenToCanonicals[token] {
			canonicals[canonical] = struct{}{}
		}
	}

	if len(canonicals) == 0 {
		i := 0
		for canonical := range r.index.NormalizedByCanonical {
			canonicals[canonical] = struct{}{}
			i++
			if i >= 1500 {
				break
			}
		}
	}

	out := make([]internal.ResolutionCandidate, 0, len(canonicals))
	for canonical := range canonicals {
		candidateNorm := r.index.NormalizedByCanonical[canonical]
		score := scoreCandidate(query, candidateNorm, queryTokens, util.Tokenize(candidateNorm))
		out = append(out, internal.ResolutionCandidate{Canonical: canonical, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Canonical < out[j].Canonical
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// Token similarity is soft: an exact token counts 1, otherwise the best
// bigram similarity against any candidate token. Compound names are often a
// single token, so hard overlap alone would zero out near misses.
func scoreCandidate(query, candidate string, queryTokens, candidateTokens []string) float64 {
	dice := util.DiceCoefficient(query, candidate)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return dice
	}

	total := 0.0
	for _, qt := range queryTokens {
		best := 0.0
		for _, ct := range candidateTokens {
			if qt == ct {
				best = 1
				break
			}
			if d := util.DiceCoefficient(qt, ct); d > best {
				best = d
			}
		}
		total += best
	}
	tokenScore := total / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}

func resolved(reason internal.ResolutionReason, confidence float64, canonical string) internal.ResolutionResult {
	return internal.ResolutionResult{
		Status:     internal.ResolveOK,
		Confidence: confidence,
		Reason:     reason,
		Normalized: canonical,
		Canonical:  util.StringPtr(canonical),
		Candidates: []internal.ResolutionCandidate{{Canonical: canonical, Score: confidence}},
	}
}

func toCandidates(canonicals []string, score float64) []internal.ResolutionCandidate {
	limit := len(canonicals)
	if limit > 5 {
		limit = 5
	}
	out := make([]internal.ResolutionCandidate, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, internal.ResolutionCandidate{Canonical: canonicals[i], Score: score})
	}
	return out
}
