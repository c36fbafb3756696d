package pricing

import (
	"sort"
	"strconv"
	"strings"
)

// DebitKey is the fee-table key used when no financing option is selected.
const DebitKey = "DÉBITO"

// FeeTable maps a financing option ("DÉBITO", "1x" ... "18x") to the fee
// fraction applied to the financeable part of a price.
type FeeTable map[string]float64

// DefaultFeeTable returns the card-machine fees a new store starts with.
func DefaultFeeTable() FeeTable {
	return FeeTable{
		DebitKey: 0.0099,
		"1x":     0.0299,
		"2x":     0.0409,
		"3x":     0.0478,
		"4x":     0.0547,
		"5x":     0.0614,
		"6x":     0.0681,
		"7x":     0.0767,
		"8x":     0.0833,
		"9x":     0.0898,
		"10x":    0.0963,
		"11x":    0.1026,
		"12x":    0.1090,
		"13x":    0.1152,
		"14x":    0.1214,
		"15x":    0.1276,
		"16x":    0.1337,
		"17x":    0.1397,
		"18x":    0.1457,
	}
}

// Rate returns the fee fraction of key. An empty key selects DebitKey; an
// unknown key has no fee.
func (t FeeTable) Rate(key string) float64 {
	if strings.TrimSpace(key) == "" {
		key = DebitKey
	}
	return nonNegative(t[key])
}

// Keys returns the options in display order: DebitKey first, then by
// installment count.
func (t FeeTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a == DebitKey || b == DebitKey {
			return a == DebitKey && b != DebitKey
		}
		na, nb := installmentCount(a), installmentCount(b)
		if na != nb {
			return na < nb
		}
		return a < b
	})
	return keys
}

// Clone returns an independent copy of the table.
func (t FeeTable) Clone() FeeTable {
	out := make(FeeTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func installmentCount(key string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(key), "x"))
	if err != nil {
		return 0
	}
	return n
}

// InstallmentPrice applies the financing fee f to a base price, leaving the
// installation fee out of the financed part:
// (base - installation) * (1 + f) + installation.
func InstallmentPrice(base, installation, f float64) float64 {
	installation = nonNegative(installation)
	return (base-installation)*(1.0+nonNegative(f)) + installation
}

// SystemLine is a decorative-curtain-system or awning line priced by a manual
// product value instead of fabric yield.
type SystemLine struct {
	ProductValue    float64
	MiscFee         float64
	InstallationFee float64
}

// BasePrice is the cash total of the line.
func (s SystemLine) BasePrice() float64 {
	return nonNegative(s.ProductValue) + nonNegative(s.MiscFee) + nonNegative(s.InstallationFee)
}

// InstallmentPrice is the financed total of the line at fee fraction f.
func (s SystemLine) InstallmentPrice(f float64) float64 {
	return InstallmentPrice(s.BasePrice(), s.InstallationFee, f)
}
