package normalization

import (
	"revenue-feature-lab/internal/domain"
)

// Options configures the Normalizer.
type Options struct {
	BaseCurrency        string   // common unit of account, converts at rate 1
	SupportedCurrencies []string // currencies retained by the validity filter
	DescriptionSentinel string   // replacement for missing descriptions
}

// DefaultOptions returns the reference-domain configuration (GBP base; GBP, USD, EUR).
func DefaultOptions() Options {
	return Options{
		BaseCurrency:        domain.DefaultBaseCurrency,
		SupportedCurrencies: append([]string(nil), domain.DefaultSupportedCurrencies...),
		DescriptionSentinel: domain.DefaultDescriptionSentinel,
	}
}

func (o Options) supported() map[string]struct{} {
	set := make(map[string]struct{}, len(o.SupportedCurrencies))
	for _, c := range o.SupportedCurrencies {
		set[c] = struct{}{}
	}
	return set
}
