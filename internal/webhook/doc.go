// Package webhook provides the HTTP client that talks to the lead
// gathering webhook.
//
// This package handles:
//   - Posting a LeadRequest as JSON to a fixed endpoint
//   - Tagging each submission with an X-Request-ID
//   - Mapping non-2xx statuses to *StatusError
//   - Buffering the response body with an upper bound
//   - Following download URLs returned by the webhook
//   - Wrapping each submission in an OpenTelemetry client span
//
// Requests are never retried.
//
// # Usage
//
//	client := webhook.NewClient(url, webhook.DefaultOptions())
//
//	resp, err := client.Submit(ctx, webhook.LeadRequest{
//	    SearchQuery:     "coffee shops",
//	    Location:        "Berlin",
//	    NumberOfResults: 20,
//	})
//	// resp.ContentType, resp.ContentDisposition, resp.Body
package webhook
