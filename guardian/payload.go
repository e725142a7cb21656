package guardian

import (
	"encoding/json"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/types"
)

// Payload is the structured creation request a guardian signs
type Payload struct {
	Variant    types.Variant  `json:"variant"`
	Maintainer types.Address  `json:"maintainer"`
	Name       string         `json:"name"`
	Symbol     string         `json:"symbol"`
	Extensions []extension.ID `json:"extensions"`
}

type signDoc struct {
	ChainID string  `json:"chain_id"`
	Payload Payload `json:"payload"`
}

// SignBytes returns the canonical bytes to sign for chainID
func (p Payload) SignBytes(chainID string) []byte {
	if p.Extensions == nil {
		p.Extensions = []extension.ID{}
	}
	// Marshalling a struct of plain fields cannot fail
	data, _ := json.Marshal(signDoc{ChainID: chainID, Payload: p})
	return data
}
