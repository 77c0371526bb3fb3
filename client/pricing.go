package client

import "strings"

// Pricing is the USD cost per thousand tokens of a model.
type Pricing struct {
	InputCostPer1K  float64
	OutputCostPer1K float64
}

var modelPricing = map[string]Pricing{
	"gpt-4o":                     {0.0025, 0.01},
	"gpt-4o-mini":                {0.00015, 0.0006},
	"gpt-4-turbo":                {0.01, 0.03},
	"gpt-4":                      {0.03, 0.06},
	"gpt-3.5-turbo":              {0.0015, 0.002},
	"claude-3-haiku-20240307":    {0.00025, 0.00125},
	"claude-3-5-sonnet-20240620": {0.003, 0.015},
	"claude-3-5-haiku-latest":    {0.0008, 0.004},
	"claude-sonnet-4-5":          {0.003, 0.015},
	"gemini-2.0-flash":           {0.0001, 0.0004},
	"gemini-2.5-flash":           {0.0003, 0.0025},
	"gemini-2.5-pro":             {0.00125, 0.01},
}

const fallbackModel = "gpt-4o"

// PricingFor returns the pricing of model. Dated or suffixed model names
// match their base entry; unknown models are priced like gpt-4o.
func PricingFor(model string) Pricing {
	if p, ok := modelPricing[model]; ok {
		return p
	}
	best := ""
	for name := range modelPricing {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return modelPricing[best]
	}
	return modelPricing[fallbackModel]
}

// Cost returns the expected USD cost of a call.
func Cost(model string, inputTokens, outputTokens int) float64 {
	p := PricingFor(model)
	return float64(inputTokens)/1000.0*p.InputCostPer1K + float64(outputTokens)/1000.0*p.OutputCostPer1K
}
