package gateway

import (
	"strings"
)

// authResults holds what an upstream MTA reported about the message's
// authentication checks. Each field is nil when the corresponding check
// was not reported; the normalizer treats missing results as failures.
type authResults struct {
	SPFPass   *bool
	DKIMPass  *bool
	DMARCPass *bool
}

// parseAuthResults reads Authentication-Results and Received-SPF headers
// stamped by the upstream MTA. Only definitive pass/fail verdicts are
// recorded; neutral, none and temperror results stay unreported.
func parseAuthResults(headers map[string][]string) authResults {
	var res authResults

	for name, values := range headers {
		switch {
		case strings.EqualFold(name, "Authentication-Results"):
			for _, value := range values {
				parseAuthResultsValue(value, &res)
			}
		case strings.EqualFold(name, "Received-SPF"):
			for _, value := range values {
				if res.SPFPass != nil {
					continue
				}
				verdict := strings.ToLower(strings.TrimSpace(value))
				if strings.HasPrefix(verdict, "pass") {
					res.SPFPass = boolPtr(true)
				} else if strings.HasPrefix(verdict, "fail") || strings.HasPrefix(verdict, "softfail") {
					res.SPFPass = boolPtr(false)
				}
			}
		}
	}
	return res
}

// parseAuthResultsValue scans one Authentication-Results header value for
// spf=, dkim= and dmarc= method results per RFC 8601.
func parseAuthResultsValue(value string, res *authResults) {
	for _, clause := range strings.Split(value, ";") {
		fields := strings.Fields(strings.TrimSpace(clause))
		if len(fields) == 0 {
			continue
		}

		method, verdict, ok := strings.Cut(strings.ToLower(fields[0]), "=")
		if !ok {
			continue
		}

		var target **bool
		switch method {
		case "spf":
			target = &res.SPFPass
		case "dkim":
			target = &res.DKIMPass
		case "dmarc":
			target = &res.DMARCPass
		default:
			continue
		}
		if *target != nil {
			continue
		}

		switch verdict {
		case "pass":
			*target = boolPtr(true)
		case "fail", "softfail", "permerror":
			*target = boolPtr(false)
		}
	}
}

func boolPtr(v bool) *bool {
	return &v
}
