package api

// Tier is the caller's plan; it scales rate limits and authorizes models
type Tier string

const (
	TierTrial      Tier = "trial"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)
