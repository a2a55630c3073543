package handlers

const (
	// Credit limits and defaults
	lowCreditThreshold   = 5   // Warn users when credits fall below this
	maxThumbnailPageSize = 100 // Maximum page size for saved thumbnails

	// SSE event types
	eventVariation       = "variation"
	eventVariationFailed = "variation_failed"
	eventSuggestions     = "suggestions"
	eventResult          = "result"
	eventError           = "error"
	eventDone            = "done"
)
