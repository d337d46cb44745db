package internaldefs

import (
	powgate "github.com/powgate/powgate"
)

// CounterDef binds one engine counter to its exported name.
type CounterDef struct {
	ID   powgate.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported name.
type HistogramDef struct {
	ID   powgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: powgate.MetricChallengeIssued, Name: "powgate_challenge_issued_total", Help: "Issued proof-of-work challenges."},
	{ID: powgate.MetricIssueRateLimited, Name: "powgate_issue_rate_limited_total", Help: "Rate-limited challenge issuance requests."},
	{ID: powgate.MetricSubmitSuccess, Name: "powgate_submit_success_total", Help: "Accepted challenge solutions."},
	{ID: powgate.MetricSubmitInvalidNonce, Name: "powgate_submit_invalid_nonce_total", Help: "Solutions rejected for missing the difficulty target."},
	{ID: powgate.MetricSubmitExpired, Name: "powgate_submit_expired_total", Help: "Solutions submitted past the challenge deadline."},
	{ID: powgate.MetricSubmitNotFound, Name: "powgate_submit_not_found_total", Help: "Submissions against unknown or consumed challenges, including replays."},
	{ID: powgate.MetricSessionCreated, Name: "powgate_session_created_total", Help: "Minted solved-state sessions."},
	{ID: powgate.MetricStatusSolved, Name: "powgate_status_solved_total", Help: "Status checks answered solved."},
	{ID: powgate.MetricStatusUnsolved, Name: "powgate_status_unsolved_total", Help: "Status checks answered unsolved."},
	{ID: powgate.MetricLogout, Name: "powgate_logout_total", Help: "Logout operations."},
	{ID: powgate.MetricReapedChallenges, Name: "powgate_reaped_challenges_total", Help: "Expired challenge records removed by sweeps."},
	{ID: powgate.MetricReapedSessions, Name: "powgate_reaped_sessions_total", Help: "Expired session records removed by sweeps."},
	{ID: powgate.MetricReapedRateWindows, Name: "powgate_reaped_rate_windows_total", Help: "Stale rate-limit windows removed by sweeps."},
	{ID: powgate.MetricStoreErrors, Name: "powgate_store_errors_total", Help: "Redis failures across all operations."},
}

var HistogramDefs = []HistogramDef{
	{ID: powgate.MetricSubmitLatency, Name: "powgate_submit_latency_seconds", Help: "Submit verification latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets,
// in seconds.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
