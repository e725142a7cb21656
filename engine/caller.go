package engine

import "github.com/blockberries/tokenberry/types"

// CallerResolver derives the caller identity of a call transaction and the
// payload to execute
type CallerResolver interface {
	Resolve(sender types.Address, data []byte) (caller types.Address, payload []byte)
}

// DirectCaller treats the sender as the caller
type DirectCaller struct{}

// Resolve implements CallerResolver
func (DirectCaller) Resolve(sender types.Address, data []byte) (types.Address, []byte) {
	return sender, data
}

// TrustedForwarder implements ERC-2771 caller resolution: when the sender
// is the forwarder, the last 20 bytes of data are the caller and the rest
// is the payload. Any other sender is the caller itself.
type TrustedForwarder struct {
	Forwarder types.Address
}

// Resolve implements CallerResolver
func (f TrustedForwarder) Resolve(sender types.Address, data []byte) (types.Address, []byte) {
	if sender != f.Forwarder || len(data) < types.SelectorSize+types.AddressSize {
		return sender, data
	}
	cut := len(data) - types.AddressSize
	return types.BytesToAddress(data[cut:]), data[:cut]
}

// Forward appends caller to payload the way a trusted forwarder relays it
func Forward(payload []byte, caller types.Address) []byte {
	out := make([]byte, 0, len(payload)+types.AddressSize)
	out = append(out, payload...)
	return append(out, caller.Bytes()...)
}
