package services

// ModelRate is the price per million tokens for one model.
type ModelRate struct {
	Input  float64
	Output float64
}

// defaultRateModel is the tier applied to models missing from the
// table. Unknown models are priced, never rejected.
const defaultRateModel = "claude-sonnet-4-20250514"

// modelRates is the per-model price table, dollars per million tokens.
var modelRates = map[string]ModelRate{
	"claude-3-5-haiku-20241022":  {Input: 1.00, Output: 5.00},
	"claude-3-5-sonnet-20241022": {Input: 3.00, Output: 15.00},
	"claude-sonnet-4-20250514":   {Input: 3.00, Output: 15.00},
	"claude-opus-4-20250514":     {Input: 15.00, Output: 75.00},
}

// Cost prices a cloud call from its exact token usage. Models absent
// from the table fall back to the default tier. Local backends never
// call this; their cost is always zero.
func Cost(model string, inputTokens, outputTokens int) float64 {
	rate, ok := modelRates[model]
	if !ok {
		rate = modelRates[defaultRateModel]
	}
	return float64(inputTokens)/1e6*rate.Input + float64(outputTokens)/1e6*rate.Output
}

// RateFor returns the rate table entry used for a model, including the
// default-tier fallback.
func RateFor(model string) ModelRate {
	if rate, ok := modelRates[model]; ok {
		return rate
	}
	return modelRates[defaultRateModel]
}

// EstimateTokens approximates a token count for backends that do not
// report usage: roughly four characters per token, rounded up. If the
// local host ever exposes exact counts, this becomes the fallback
// path, not the primary one.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
