package observability

import (
	"strconv"
	"strings"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	// Gemini 2.5 Flash Image pricing (image output tokens dominate)
	geminiFlashImageInputPrice  = 0.0003
	geminiFlashImageOutputPrice = 0.03

	// Gemini Flash text pricing
	geminiFlashInputPrice  = 0.0005
	geminiFlashOutputPrice = 0.003

	// GPT-4o pricing
	gpt4oInputPrice  = 0.005
	gpt4oOutputPrice = 0.015

	// GPT-4o-mini pricing
	gpt4oMiniInputPrice  = 0.00015
	gpt4oMiniOutputPrice = 0.0006
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for all models
var PricingTable = map[string]ModelPricing{
	"gemini-2.5-flash-image": {
		InputPricePer1K:  geminiFlashImageInputPrice,
		OutputPricePer1K: geminiFlashImageOutputPrice,
	},
	"gemini-3-flash-preview": {
		InputPricePer1K:  geminiFlashInputPrice,
		OutputPricePer1K: geminiFlashOutputPrice,
	},
	"gpt-4o": {
		InputPricePer1K:  gpt4oInputPrice,
		OutputPricePer1K: gpt4oOutputPrice,
	},
	"gpt-4o-mini": {
		InputPricePer1K:  gpt4oMiniInputPrice,
		OutputPricePer1K: gpt4oMiniOutputPrice,
	},
}

// pricingFor finds the exact model or the longest known prefix of it
func pricingFor(model string) (ModelPricing, bool) {
	if p, ok := PricingTable[model]; ok {
		return p, true
	}
	best := ""
	for name := range PricingTable {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelPricing{}, false
	}
	return PricingTable[best], true
}

// CalculateCost calculates the cost in USD for a call; unknown models cost 0
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := pricingFor(model)
	if !ok {
		return 0
	}

	inputCost := (float64(inputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(outputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
