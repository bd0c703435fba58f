package emails

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/internal/record"
	"github.com/seedscout/seedscout-cli/internal/resilience"
	"github.com/seedscout/seedscout-cli/internal/store"
	"github.com/seedscout/seedscout-cli/pkg/mailverify"
)

// Discovery verifies generated candidates against the mail verification
// service, most likely shape first, and stops at the first deliverable
// address.
type Discovery struct {
	verifier mailverify.Client
}

func NewDiscovery(v mailverify.Client) *Discovery {
	return &Discovery{verifier: v}
}

// Discover returns the first candidate the verifier accepts, or nil when
// no shape verifies. Exhausting all candidates without a hit is an
// expected outcome, not an error; only a verifier failure on every
// candidate is reported as one.
func (d *Discovery) Discover(ctx context.Context, founder model.FounderCandidate) (*model.EmailCandidate, error) {
	first, last := record.SplitFounderName(founder.Name)
	candidates := GeneratePatterns(first, last, founder.Domain)
	if len(candidates) == 0 {
		return nil, nil
	}

	var lastErr error
	for _, c := range candidates {
		resp, err := resilience.DoVal(ctx, resilience.DefaultPolicy(), func(ctx context.Context) (*mailverify.VerifyResponse, error) {
			return d.verifier.Verify(ctx, c.Address)
		})
		if err != nil {
			lastErr = err
			zap.L().Debug("emails: verify failed, trying next pattern",
				zap.String("pattern", c.PatternID),
				zap.Error(err),
			)
			continue
		}
		if resp.Deliverable {
			zap.L().Info("emails: address verified",
				zap.String("address", c.Address),
				zap.String("pattern", c.PatternID),
			)
			return &c, nil
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "emails: verify candidates")
	}
	return nil, nil
}

// Runner walks stored records that have founder names but no email yet
// and fills the ones whose address verifies.
type Runner struct {
	store       store.Store
	discovery   *Discovery
	recordDelay time.Duration
}

func NewRunner(s store.Store, d *Discovery, recordDelay time.Duration) *Runner {
	return &Runner{store: s, discovery: d, recordDelay: recordDelay}
}

// Run processes up to limit records and reports how many were checked
// and how many gained an address. A record whose discovery errors is
// skipped; the rest of the batch still runs.
func (r *Runner) Run(ctx context.Context, limit int) (checked, found int, err error) {
	recs, err := r.store.ListMissingEmails(ctx, limit)
	if err != nil {
		return 0, 0, eris.Wrap(err, "emails: list records")
	}

	for i, rec := range recs {
		if i > 0 && r.recordDelay > 0 {
			select {
			case <-ctx.Done():
				return checked, found, ctx.Err()
			case <-time.After(r.recordDelay):
			}
		}

		founder := model.FounderCandidate{Name: rec.FounderNames, Domain: rec.Website}
		if rec.FounderFirstName != "" {
			founder.Name = strings.TrimSpace(rec.FounderFirstName + " " + rec.FounderLastName)
		}

		checked++
		candidate, err := r.discovery.Discover(ctx, founder)
		if err != nil {
			zap.L().Warn("emails: discovery failed",
				zap.String("id", rec.ID),
				zap.String("name", rec.Name),
				zap.Error(err),
			)
			continue
		}
		if candidate == nil {
			zap.L().Debug("emails: no pattern verified",
				zap.String("id", rec.ID),
				zap.String("name", rec.Name),
			)
			continue
		}
		if err := r.store.SetFounderEmail(ctx, rec.ID, candidate.Address); err != nil {
			zap.L().Warn("emails: persist failed",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		found++
	}
	return checked, found, nil
}
