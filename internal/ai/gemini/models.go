package gemini

import "strings"

// Provider is the name reported in logs and metrics.
const Provider = "gemini"

// DefaultModel is used when neither the tenant nor the configuration picks one.
const DefaultModel = "gemini-2.5-flash"

// SupportedModels lists the models a tenant may select. All of them accept
// inline document parts.
var SupportedModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-1.5-flash-latest",
	"gemini-1.5-pro-latest",
}

// IsSupported reports whether model is one of SupportedModels.
func IsSupported(model string) bool {
	model = strings.TrimSpace(model)
	for _, m := range SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}
