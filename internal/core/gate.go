package core

// GateResult reports whether a request satisfies the review prerequisites and,
// when it does not, which prerequisites are missing.
type GateResult struct {
	Valid   bool
	Missing []string
}

// CanSubmitForReview checks the deliverables gate for entering review:
// at least one STL file and at least one render preview must be attached.
// The missing list is rendered in user-facing alerts, so the wording is fixed.
func CanSubmitForReview(r Request) GateResult {
	var missing []string
	if len(r.Deliverables.STLFiles) == 0 {
		missing = append(missing, "STL files")
	}
	if len(r.Deliverables.RenderPreviews) == 0 {
		missing = append(missing, "at least 1 render preview")
	}
	return GateResult{Valid: len(missing) == 0, Missing: missing}
}
