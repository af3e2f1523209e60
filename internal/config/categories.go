package config

const (
	CategoryInformation = "🕯️ Information"
	CategoryCustom      = "🧩 Custom Commands"
	CategorySettings    = "⚙️ Settings"
)

// CategoryWeights orders command categories in /help.
var CategoryWeights = map[string]int{
	CategoryInformation: 0,
	CategoryCustom:      10,
	CategorySettings:    50,
}
