package rules

import "github.com/accessdesk/access-api/internal/models"

// AutoVerifyPrereqs returns the ids of prerequisites satisfiable from the
// profile alone: auto-verified, verifiable, and present in the profile's
// completed trainings. Pure; callers write the resulting auto statuses into
// the draft.
func AutoVerifyPrereqs(profile *models.UserProfile, prereqs []models.Prerequisite) map[string]struct{} {
	verified := make(map[string]struct{})
	if profile == nil {
		return verified
	}
	for _, p := range prereqs {
		if p.AutoVerified && p.Verifiable && profile.HasTraining(p.ID) {
			verified[p.ID] = struct{}{}
		}
	}
	return verified
}

// AreAllAssetsPrereqsComplete reports whether every asset's required
// prerequisites are complete or auto in the status map. Required ids are
// recomputed per call so a context switch invalidates previously satisfied
// sets without explicit invalidation; stale entries are never consulted.
func AreAllAssetsPrereqsComplete(status models.PrereqStatusMap, assets []models.Asset, accessType models.AccessType, environment models.Environment) bool {
	for _, asset := range assets {
		for _, p := range PrereqsForContext(accessType, asset.Type, environment) {
			if !status.Get(asset.ID, p.ID).Satisfied() {
				return false
			}
		}
	}
	return true
}

// MarkPrereqsComplete builds a status map that satisfies every required
// prerequisite for the given assets: verifiable entries are marked auto, the
// rest complete. Used by the explicit autofill-assumptions action only;
// submitted requests still go through approver review.
func MarkPrereqsComplete(assets []models.Asset, accessType models.AccessType, environment models.Environment) models.PrereqStatusMap {
	status := make(models.PrereqStatusMap, len(assets))
	for _, asset := range assets {
		for _, p := range PrereqsForContext(accessType, asset.Type, environment) {
			if p.Verifiable {
				status.Set(asset.ID, p.ID, models.PrereqAuto)
			} else {
				status.Set(asset.ID, p.ID, models.PrereqComplete)
			}
		}
	}
	return status
}
