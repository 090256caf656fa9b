package api

// Model identifiers understood by the router and the pricing tables
const (
	ModelNano = "gpt-4.1-nano"
	ModelMini = "gpt-4.1-mini"
	ModelTop  = "gpt-4.1"

	ModelVision     = "gpt-4o"
	ModelVisionMini = "gpt-4o-mini"

	ModelWhisper = "whisper-1"
)
