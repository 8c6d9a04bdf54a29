// Package access implements the tier-based permission check. It is a pure
// function of (caller tier, descriptor) so web layers and jobs can
// pre-filter model lists without going through the orchestrator.
package access

import (
	"athena/internal/domain/model"
)

// Authorize reports whether a caller at the given tier may invoke the
// model described by desc. Fails closed: any invalid tier denies access.
func Authorize(caller model.Tier, desc model.Descriptor) bool {
	if !caller.Valid() || !desc.RequiredTier.Valid() {
		return false
	}
	return caller >= desc.RequiredTier
}

// FilterAuthorized returns the descriptors the caller may invoke,
// preserving input order.
func FilterAuthorized(caller model.Tier, descs []model.Descriptor) []model.Descriptor {
	out := make([]model.Descriptor, 0, len(descs))
	for _, d := range descs {
		if Authorize(caller, d) {
			out = append(out, d)
		}
	}
	return out
}
