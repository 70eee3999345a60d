// Package volatility forecasts per-instrument annualized volatility.
//
// Each model is a ranked chain of estimators tried in order; the first one that
// produces a usable forecast wins, and the winning method is reported with the result.
package volatility

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
)

// Kind selects the variance recursion.
type Kind int

const (
	EWMA Kind = iota
	GARCH
	EGARCH
)

func (k Kind) String() string {
	switch k {
	case EWMA:
		return "ewma"
	case GARCH:
		return "garch"
	case EGARCH:
		return "egarch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Model is a parsed volatility model. HalfLife (trading days) only applies to EWMA.
type Model struct {
	Kind     Kind
	HalfLife int
}

// Default models.
var (
	EWMA5D   = Model{Kind: EWMA, HalfLife: 5}
	EWMA30D  = Model{Kind: EWMA, HalfLife: 30}
	EWMA200D = Model{Kind: EWMA, HalfLife: 200}
	GARCH11  = Model{Kind: GARCH}
	EGARCH11 = Model{Kind: EGARCH}
)

// String returns the canonical model name (ewma_30d, garch, egarch).
func (m Model) String() string {
	if m.Kind == EWMA {
		return fmt.Sprintf("ewma_%dd", m.HalfLife)
	}
	return m.Kind.String()
}

// ParseModel accepts canonical names such as "ewma_30d", "garch" and "egarch",
// any "ewma_<n>d" half-life, and the display names used by older clients
// ("EWMA (5D)", "Garch Volatility", "E-Garch Volatility").
func ParseModel(name string) (Model, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '(', ')':
			return -1
		}
		return r
	}, key)
	key = strings.TrimSuffix(key, "volatility")

	switch {
	case key == "garch":
		return GARCH11, nil
	case key == "egarch":
		return EGARCH11, nil
	case strings.HasPrefix(key, "ewma") && strings.HasSuffix(key, "d"):
		days, err := strconv.Atoi(key[len("ewma") : len(key)-1])
		if err == nil && days > 0 {
			return Model{Kind: EWMA, HalfLife: days}, nil
		}
	}

	return Model{}, fmt.Errorf("%w: %q", domain.ErrUnknownModel, name)
}
