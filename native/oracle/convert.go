package oracle

import (
	"errors"
	"math"
	"math/big"
)

var (
	// ErrAmountOverflow indicates a converted amount does not fit in uint64.
	ErrAmountOverflow = errors.New("oracle: converted amount overflows uint64")
)

const (
	// PointsPerUSD is the fixed protocol conversion between whole USD and
	// points. It anchors both partner quota sizing and perk pricing.
	PointsPerUSD = 1_000
	// MicroUSDPerUSD is the canonical fixed-point scale for USD values. Every
	// boundary converts into micro-USD rather than propagating ambiguous
	// scale factors.
	MicroUSDPerUSD = 1_000_000
)

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

func fitUint64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || v.Cmp(maxUint64) > 0 {
		return 0, ErrAmountOverflow
	}
	return v.Uint64(), nil
}

// ConvertAssetToPoints converts an asset amount into points using the quoted
// rate: points = asset * rate / 10^decimals. Truncation favours the protocol.
func ConvertAssetToPoints(asset uint64, rate uint64, decimals uint8) (uint64, error) {
	if rate == 0 {
		return 0, ErrZeroRate
	}
	points := new(big.Int).Mul(new(big.Int).SetUint64(asset), new(big.Int).SetUint64(rate))
	points.Quo(points, pow10(decimals))
	return fitUint64(points)
}

// ConvertPointsToAsset converts points back into the asset denomination:
// asset = points * 10^decimals / rate.
func ConvertPointsToAsset(points uint64, rate uint64, decimals uint8) (uint64, error) {
	if rate == 0 {
		return 0, ErrZeroRate
	}
	asset := new(big.Int).Mul(new(big.Int).SetUint64(points), pow10(decimals))
	asset.Quo(asset, new(big.Int).SetUint64(rate))
	return fitUint64(asset)
}

// ConvertMicroUSDToPoints applies the fixed protocol anchor to a micro-USD
// value. Used for perk pricing and collateral quota sizing.
func ConvertMicroUSDToPoints(microUSD uint64) (uint64, error) {
	points := new(big.Int).Mul(new(big.Int).SetUint64(microUSD), big.NewInt(PointsPerUSD))
	points.Quo(points, big.NewInt(MicroUSDPerUSD))
	return fitUint64(points)
}

// ConvertPointsToMicroUSD inverts the fixed protocol anchor; revenue
// reinvestment uses it to grow collateral from recycled points.
func ConvertPointsToMicroUSD(points uint64) (uint64, error) {
	micro := new(big.Int).Mul(new(big.Int).SetUint64(points), big.NewInt(MicroUSDPerUSD))
	micro.Quo(micro, big.NewInt(PointsPerUSD))
	return fitUint64(micro)
}
