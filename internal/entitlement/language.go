package entitlement

// tierLanguages is the static tier to language allow-list. Lookup is pure,
// no hidden state: the same tier and language always give the same answer.
var tierLanguages = map[Tier][]string{
	TierFree:        {"en"},
	TierPremium:     {"en", "es", "fr", "de"},
	TierPremiumPlus: {"en", "es", "fr", "de", "ja", "ko", "pt"},
	TierEnterprise:  {"en", "es", "fr", "de", "ja", "ko", "pt", "zh", "hi", "ar"},
}

// CanSwitchLanguage reports whether the tier may play the given audio
// language variant.
func CanSwitchLanguage(tier Tier, lang string) bool {
	for _, l := range tierLanguages[tier] {
		if l == lang {
			return true
		}
	}
	return false
}

// Languages returns the languages available to the tier.
func Languages(tier Tier) []string {
	langs := tierLanguages[tier]
	result := make([]string, len(langs))
	copy(result, langs)
	return result
}
