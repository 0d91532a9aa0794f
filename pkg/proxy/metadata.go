package proxy

import (
	"net/http"
	"strconv"

	"mercator-hq/relay/pkg/orchestrator"
	"mercator-hq/relay/pkg/proxy/types"
)

// Response metadata headers.
const (
	CacheHeader       = "X-Cache"
	CacheTierHeader   = "X-Cache-Tier"
	AttemptsHeader    = "X-Attempts"
	CostHeader        = "X-Cost"
	FingerprintHeader = "X-Cache-Key"
)

// SetMetadataHeaders copies the serving metadata onto the response headers.
// It must run before the status line is written. Failed requests carry the
// headers as far as the request got.
func SetMetadataHeaders(w http.ResponseWriter, md *orchestrator.Metadata) {
	if md == nil {
		return
	}
	h := w.Header()

	if md.RequestID != "" {
		h.Set(RequestIDHeader, md.RequestID)
	}
	if md.CacheStatus != "" {
		h.Set(CacheHeader, string(md.CacheStatus))
	}
	if md.CacheTier != "" {
		h.Set(CacheTierHeader, string(md.CacheTier))
	}
	if md.Fingerprint != "" {
		h.Set(FingerprintHeader, md.Fingerprint)
	}
	if md.Provider != "" {
		h.Set(ProviderHeader, md.Provider)
	}
	h.Set(AttemptsHeader, strconv.Itoa(md.Attempts))
	h.Set(CostHeader, strconv.FormatFloat(md.Cost, 'f', -1, 64))
}

// BodyMetadata converts the serving metadata into its JSON body form.
func BodyMetadata(md *orchestrator.Metadata) *types.RelayMetadata {
	out := &types.RelayMetadata{
		RequestID:   md.RequestID,
		Fingerprint: md.Fingerprint,
		Cache:       string(md.CacheStatus),
		CacheTier:   string(md.CacheTier),
		Provider:    md.Provider,
		Strategy:    string(md.Strategy),
		Candidates:  md.Candidates,
		Attempts:    md.Attempts,
		Cost:        md.Cost,
		Estimated:   md.CostEstimated,
		LatencyMS:   md.Latency.Milliseconds(),
	}
	for _, f := range md.Failures {
		out.Failures = append(out.Failures, f.Error())
	}
	return out
}
