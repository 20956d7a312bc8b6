package scoring

import (
	"sort"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// ValidateProfiles checks every profile weight against the signal registry
// (the configured normalizer set). A profile naming an unregistered signal
// would silently skew every score through renormalization, so it is fatal
// at startup rather than discovered mid-run.
func ValidateProfiles(cfg config.ScoringConfig) error {
	for _, name := range sortedProfileNames(cfg.Profiles) {
		for signal := range cfg.Profiles[name].Weights {
			if _, ok := cfg.Normalizers[signal]; !ok {
				return errors.Newf(errors.ErrCodeSignalUnknown,
					"profile %q references unregistered signal %q", name, signal)
			}
		}
	}
	return nil
}

// sortedProfileNames fixes the profile iteration order so errors, exports,
// and logs list profiles deterministically.
func sortedProfileNames(profiles map[string]config.ProfileConfig) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
