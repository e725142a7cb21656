package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/registry"
	"github.com/blockberries/tokenberry/types"
)

// TxKind identifies what a transaction does
type TxKind uint8

const (
	TxUnknown TxKind = iota
	TxCreateToken
	TxAllowExtension
	TxDisallowExtension
	TxCall
)

var txKindNames = map[TxKind]string{
	TxCreateToken:       "create_token",
	TxAllowExtension:    "allow_extension",
	TxDisallowExtension: "disallow_extension",
	TxCall:              "call",
}

// String returns the kind name
func (k TxKind) String() string {
	if s, ok := txKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler
func (k TxKind) MarshalText() ([]byte, error) {
	if _, ok := txKindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTxKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *TxKind) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for kind, name := range txKindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTxKind, text)
}

// Tx is a transaction submitted to the engine
type Tx struct {
	ID     uuid.UUID     `json:"id"`
	Kind   TxKind        `json:"kind"`
	Time   time.Time     `json:"time"`
	Sender types.Address `json:"sender"`

	// call
	Target types.Address `json:"target"`
	Data   []byte        `json:"data,omitempty"`

	// create_token
	Create    *registry.CreateRequest `json:"create,omitempty"`
	Signature []byte                  `json:"signature,omitempty"`

	// allow_extension, disallow_extension
	Extension extension.ID `json:"extension,omitempty"`
}

// ValidateBasic checks that the fields required by the kind are present
func (tx *Tx) ValidateBasic() error {
	if tx.Sender.IsZero() {
		return fmt.Errorf("%w: zero sender", ErrInvalidTx)
	}
	switch tx.Kind {
	case TxCreateToken:
		if tx.Create == nil {
			return fmt.Errorf("%w: create_token without request", ErrInvalidTx)
		}
	case TxAllowExtension, TxDisallowExtension:
		if tx.Extension == "" {
			return fmt.Errorf("%w: %s without extension", ErrInvalidTx, tx.Kind)
		}
	case TxCall:
		if tx.Target.IsZero() {
			return fmt.Errorf("%w: call without target", ErrInvalidTx)
		}
		if len(tx.Data) < types.SelectorSize {
			return fmt.Errorf("%w: call data shorter than a selector", ErrInvalidTx)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownTxKind, uint8(tx.Kind))
	}
	return nil
}

// Receipt is returned for every applied transaction
type Receipt struct {
	ID     uuid.UUID       `json:"id"`
	Height uint64          `json:"height"`
	Kind   TxKind          `json:"kind"`
	Time   time.Time       `json:"time"`
	Caller types.Address   `json:"caller"`
	Target types.Address   `json:"target"`
	Result json.RawMessage `json:"result,omitempty"`
}

// encodeTx returns the journal encoding of an applied transaction
func encodeTx(tx *Tx) ([]byte, error) {
	return json.Marshal(tx)
}

func decodeTx(data []byte) (*Tx, error) {
	tx := &Tx{}
	if err := json.Unmarshal(data, tx); err != nil {
		return nil, err
	}
	return tx, nil
}
