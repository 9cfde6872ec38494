package security

import "github.com/macroforge/macroforge/identity"

// Fixed risk thresholds used for severity bucketing and sandbox
// recommendation.
const (
	ThresholdLow      = 25
	ThresholdMedium   = 50
	ThresholdHigh     = 75
	ThresholdCritical = 90
)

// Bucket names a severity band of the risk scale.
type Bucket string

const (
	BucketLow      Bucket = "low"
	BucketMedium   Bucket = "medium"
	BucketHigh     Bucket = "high"
	BucketCritical Bucket = "critical"
)

// BucketOf maps a score onto its severity band.
func BucketOf(score identity.RiskScore) Bucket {
	switch {
	case score.Int() >= ThresholdCritical:
		return BucketCritical
	case score.Int() >= ThresholdHigh:
		return BucketHigh
	case score.Int() >= ThresholdMedium:
		return BucketMedium
	}
	return BucketLow
}

// Decision is the approval outcome the advisor reaches for a piece of
// content.
type Decision string

const (
	// DecisionAutoApprove means the content may be packaged without a
	// human in the loop.
	DecisionAutoApprove Decision = "auto_approve"

	// DecisionManualApproval means a human must review before
	// packaging proceeds.
	DecisionManualApproval Decision = "manual_approval"

	// DecisionReject means hard violations are present; the content is
	// never packaged regardless of score.
	DecisionReject Decision = "reject"
)

// Advice is the sandbox recommendation for a scored plugin: the
// isolation tier a downstream enforcer should apply, the resource
// ceilings of that tier, and the approval decision.
type Advice struct {
	Score       identity.RiskScore
	Bucket      Bucket
	Recommended identity.SecurityLevel
	Limits      identity.ResourceLimits
	Decision    Decision
}

// Advise maps a risk score and scan report to a recommended isolation
// tier. Auto-approval requires both zero hard violations and a score
// below the medium threshold; violations always reject.
func Advise(score identity.RiskScore, report Report) Advice {
	recommended := recommendLevel(score)
	advice := Advice{
		Score:       score,
		Bucket:      BucketOf(score),
		Recommended: recommended,
		Limits:      recommended.Ceiling(),
	}

	switch {
	case report.Unsafe():
		advice.Decision = DecisionReject
	case score.Int() < ThresholdMedium:
		advice.Decision = DecisionAutoApprove
	default:
		advice.Decision = DecisionManualApproval
	}
	return advice
}

// recommendLevel maps a score to the isolation tier whose ceilings the
// downstream enforcer should apply.
func recommendLevel(score identity.RiskScore) identity.SecurityLevel {
	switch {
	case score.Int() >= ThresholdCritical:
		return identity.LevelDangerous
	case score.Int() >= ThresholdHigh:
		return identity.LevelRestricted
	case score.Int() >= ThresholdMedium:
		return identity.LevelSandboxed
	}
	return identity.LevelTrusted
}
