package token

import "errors"

// Token errors
var (
	ErrTokenLocked       = errors.New("token locked")
	ErrTokenIDExists     = errors.New("token id already minted")
	ErrTokenIDNotFound   = errors.New("token id not found")
	ErrNotOwner          = errors.New("not the token owner")
	ErrCallDepthExceeded = errors.New("call depth exceeded")
	ErrNoRouter          = errors.New("no outbound router")
)
