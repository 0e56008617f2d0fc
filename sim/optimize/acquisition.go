package optimize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Acquisition function names.
const (
	AcquisitionEI  = "ei"  // expected improvement
	AcquisitionPI  = "pi"  // probability of improvement
	AcquisitionLCB = "lcb" // lower confidence bound
)

// Default exploration parameters.
const (
	DefaultXi    = 0.01
	DefaultKappa = 1.96
)

var validAcquisitions = map[string]bool{
	AcquisitionEI:  true,
	AcquisitionPI:  true,
	AcquisitionLCB: true,
	"":             true, // empty defaults to ei
}

// IsValidAcquisition returns true if name is a recognized acquisition function.
func IsValidAcquisition(name string) bool { return validAcquisitions[name] }

// ValidAcquisitionNames returns the recognized names in sorted order.
func ValidAcquisitionNames() []string {
	var names []string
	for name := range validAcquisitions {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AcquisitionFunc scores a candidate from its posterior mean and standard
// deviation given the best (lowest) miss rate observed so far. Higher is better.
type AcquisitionFunc func(mean, std, best float64) float64

// NewAcquisition returns the named acquisition function. xi is the
// improvement margin for ei/pi; kappa the exploration weight for lcb.
func NewAcquisition(name string, xi, kappa float64) (AcquisitionFunc, error) {
	switch name {
	case AcquisitionEI, "":
		return func(mean, std, best float64) float64 { return expectedImprovement(mean, std, best, xi) }, nil
	case AcquisitionPI:
		return func(mean, std, best float64) float64 { return probabilityOfImprovement(mean, std, best, xi) }, nil
	case AcquisitionLCB:
		// negated so that a lower bound closer to zero miss rate scores higher
		return func(mean, std, _ float64) float64 { return -(mean - kappa*std) }, nil
	}
	return nil, fmt.Errorf("unknown acquisition function %q; valid: %s", name, strings.Join(ValidAcquisitionNames(), ", "))
}

func expectedImprovement(mean, std, best, xi float64) float64 {
	imp := best - mean - xi
	if std <= 0 {
		return math.Max(imp, 0)
	}
	z := imp / std
	return imp*distuv.UnitNormal.CDF(z) + std*distuv.UnitNormal.Prob(z)
}

func probabilityOfImprovement(mean, std, best, xi float64) float64 {
	imp := best - mean - xi
	if std <= 0 {
		if imp > 0 {
			return 1
		}
		return 0
	}
	return distuv.UnitNormal.CDF(imp / std)
}
