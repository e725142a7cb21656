/*
Package guardian authorizes token creation.

A guardian is an ed25519 key that signs creation payloads. The registry
never sees the signature scheme: it asks a Verifier for a yes/no answer on
the payload it is about to deploy.

# Key File

FileKey persists the key pair as JSON with 0600 permissions:

	{
	  "pub_key": "<base64>",
	  "priv_key": "<base64>"
	}

LoadOrGenerateFileKey creates the file on first use, so an operator can
bootstrap a guardian with a single command.

# Sign Bytes

The signed message is the canonical JSON of {chain_id, payload}. Binding the
chain id keeps a signature for one deployment from being replayed on
another one.

# Usage

	key, err := guardian.LoadOrGenerateFileKey("guardian_key.json")
	sig := key.Sign(chainID, payload)

	v := guardian.NewKeyVerifier(key.PublicKey(), chainID)
	ok := v.Verify(payload, sig)
*/
package guardian
