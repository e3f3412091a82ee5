package collector

// DefaultFallbackPrice is used for coins missing from the fallback table.
const DefaultFallbackPrice = 10000

var fallbackPrices = map[string]float64{
	"bitcoin":  40000,
	"ethereum": 3000,
	"cardano":  2.5,
	"solana":   150,
	"polkadot": 25,
	"tether":   1,
	"ripple":   0.75,
	"dogecoin": 0.15,
}

// FallbackPrice returns the price substituted when the live quote cannot be fetched.
func FallbackPrice(coinID string) float64 {
	if p, ok := fallbackPrices[coinID]; ok {
		return p
	}
	return DefaultFallbackPrice
}
