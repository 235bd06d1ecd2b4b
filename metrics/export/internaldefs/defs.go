package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignUpSuccess, Name: "gosession_sign_up_success_total", Help: "Accounts created."},
	{ID: goSession.MetricSignUpConflict, Name: "gosession_sign_up_conflict_total", Help: "Sign-ups rejected because the login or email exists."},
	{ID: goSession.MetricSignInSuccess, Name: "gosession_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_sign_in_failure_total", Help: "Sign-ins rejected for bad credentials."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Completed refresh rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: goSession.MetricRefreshNotRecognized, Name: "gosession_refresh_not_recognized_total", Help: "Refresh tokens presented after their session ended."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Single-session logouts."},
	{ID: goSession.MetricLogoutAll, Name: "gosession_logout_all_total", Help: "Logout-all operations."},
	{ID: goSession.MetricPasswordChangeSuccess, Name: "gosession_password_change_success_total", Help: "Completed password changes."},
	{ID: goSession.MetricPasswordChangeInvalidOld, Name: "gosession_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: goSession.MetricPasswordChangeIdentical, Name: "gosession_password_change_identical_total", Help: "Password changes rejected as identical."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions added to the store."},
	{ID: goSession.MetricSessionEvicted, Name: "gosession_session_evicted_total", Help: "Sessions evicted by the per-user cap."},
	{ID: goSession.MetricSessionInvalidated, Name: "gosession_session_invalidated_total", Help: "Sessions removed by logout or password change."},
	{ID: goSession.MetricTokenExpired, Name: "gosession_token_expired_total", Help: "Tokens rejected as expired."},
	{ID: goSession.MetricTokenInvalid, Name: "gosession_token_invalid_total", Help: "Tokens rejected as invalid."},
	{ID: goSession.MetricStoreFailure, Name: "gosession_store_failure_total", Help: "Infrastructure errors surfaced to callers."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh latency."},
}

// HistogramBounds are the finite upper bounds, in seconds, of the engine's
// eight latency buckets. The last bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for gauge-per-bucket exporters.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
