package internaldefs

import (
	"github.com/dia-accounts/dia"
)

// Namespace prefixes every exported metric name.
const Namespace = "dia"

type CounterDef struct {
	ID   dia.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   dia.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in export order.
var CounterDefs = []CounterDef{
	{ID: dia.MetricRateLimited, Name: "dia_rate_limited_total", Help: "Requests rejected by a rate-limit group."},
	{ID: dia.MetricRateLimitStoreFailure, Name: "dia_rate_limit_store_failure_total", Help: "Rate-limit checks the counter store could not answer."},
	{ID: dia.MetricRateLimitFailOpen, Name: "dia_rate_limit_fail_open_total", Help: "Requests admitted because the limiter is configured to fail open."},
	{ID: dia.MetricCredentialsSuccess, Name: "dia_credentials_success_total", Help: "Successful username and password checks."},
	{ID: dia.MetricCredentialsFailure, Name: "dia_credentials_failure_total", Help: "Rejected username and password checks."},
	{ID: dia.MetricUserCreated, Name: "dia_user_created_total", Help: "Registered users."},
	{ID: dia.MetricUserCreateDuplicate, Name: "dia_user_create_duplicate_total", Help: "Registrations rejected for a taken username."},
	{ID: dia.MetricUserCreateFailure, Name: "dia_user_create_failure_total", Help: "Registrations that failed for any other reason."},
	{ID: dia.MetricRefreshTokenCreated, Name: "dia_refresh_token_created_total", Help: "Issued refresh tokens."},
	{ID: dia.MetricJWTSigned, Name: "dia_jwt_signed_total", Help: "Access tokens minted from a refresh token."},
	{ID: dia.MetricJWTSignFailure, Name: "dia_jwt_sign_failure_total", Help: "Rejected or failed access token mints."},
	{ID: dia.MetricJWTValidateSuccess, Name: "dia_jwt_validate_success_total", Help: "Access tokens that passed verification."},
	{ID: dia.MetricJWTValidateFailure, Name: "dia_jwt_validate_failure_total", Help: "Access tokens that failed verification."},
}

var HistogramDefs = []HistogramDef{
	{ID: dia.MetricValidateLatency, Name: "dia_jwt_validate_latency_seconds", Help: "Access token verification latency."},
}

// AuditDroppedName is exported alongside the engine counters.
const (
	AuditDroppedName = "dia_audit_dropped_total"
	AuditDroppedHelp = "Audit events that never reached the sink."
)

// HistogramBounds are the upper bounds of the engine's fixed latency buckets.
var HistogramBounds = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// HistogramBoundSuffix spells HistogramBounds for instrument names.
var HistogramBoundSuffix = []string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
