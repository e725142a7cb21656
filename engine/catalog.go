package engine

import (
	"fmt"
	"sort"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/signer"
	"github.com/blockberries/tokenberry/voting"
	"github.com/blockberries/tokenberry/wallet"
)

// Catalog holds the extension implementations an allow_extension
// transaction may name
type Catalog struct {
	exts map[extension.ID]extension.Extension
}

// NewCatalog creates a catalog of exts. IDs must be unique.
func NewCatalog(exts ...extension.Extension) (*Catalog, error) {
	c := &Catalog{exts: make(map[extension.ID]extension.Extension, len(exts))}
	for _, ext := range exts {
		if _, ok := c.exts[ext.ID()]; ok {
			return nil, fmt.Errorf("%w: duplicate catalog entry %s", extension.ErrInvalidExtension, ext.ID())
		}
		c.exts[ext.ID()] = ext
	}
	return c, nil
}

// DefaultCatalog returns the voting, signer and wallet extensions
func DefaultCatalog(votingCfg voting.Config) (*Catalog, error) {
	vote, err := voting.New(votingCfg)
	if err != nil {
		return nil, err
	}
	return NewCatalog(vote, signer.New(), wallet.New())
}

// Get returns the extension with id
func (c *Catalog) Get(id extension.ID) (extension.Extension, bool) {
	ext, ok := c.exts[id]
	return ext, ok
}

// Voting returns the catalog's voting extension
func (c *Catalog) Voting() (*voting.Extension, bool) {
	ext, ok := c.exts[voting.ID]
	if !ok {
		return nil, false
	}
	v, ok := ext.(*voting.Extension)
	return v, ok
}

// IDs returns the catalog's extension ids, sorted
func (c *Catalog) IDs() []extension.ID {
	out := make([]extension.ID, 0, len(c.exts))
	for id := range c.exts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
