package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/types"
)

// InitParams are the one-time initialization parameters of a token
type InitParams struct {
	Variant     types.Variant  `json:"variant"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Maintainer  types.Address  `json:"maintainer"`
	EpochWindow time.Duration  `json:"epoch_window"`
	Extensions  []extension.ID `json:"extensions,omitempty"`

	// Constitutional lists operation signatures that need an executed
	// proposal under constitutional monarchy
	Constitutional []string `json:"constitutional,omitempty"`
}

// ValidateBasic performs basic validation
func (p InitParams) ValidateBasic() error {
	if !p.Variant.IsTokenVariant() {
		return fmt.Errorf("%w: variant %s", types.ErrInvalidArgument, p.Variant)
	}
	if strings.TrimSpace(p.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol", types.ErrInvalidArgument)
	}
	if p.Maintainer.IsZero() {
		return fmt.Errorf("%w: zero maintainer", types.ErrInvalidArgument)
	}
	if p.EpochWindow < time.Second {
		return fmt.Errorf("%w: epoch window %s", types.ErrInvalidArgument, p.EpochWindow)
	}
	return nil
}

// Settings is the public description of a token
type Settings struct {
	Address        types.Address    `json:"address"`
	Variant        types.Variant    `json:"variant"`
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Maintainer     types.Address    `json:"maintainer"`
	State          types.State      `json:"state"`
	System         types.System     `json:"system"`
	DeployedAt     time.Time        `json:"deployed_at"`
	EpochWindow    time.Duration    `json:"epoch_window"`
	Extensions     []extension.ID   `json:"extensions"`
	Constitutional []types.Selector `json:"constitutional,omitempty"`
}
