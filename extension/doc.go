// Package extension implements the extension capability table and the
// dispatcher that routes non-native operations to it.
//
// An Extension contributes a list of Operations, each identified by the
// selector of its signature. The registry keeps one global AllowList keyed
// by selector; every token keeps its own Activation set. An operation is
// callable on a token iff its extension is allowed for the token's variant
// AND activated on the token:
//
//	selector ──► AllowList ──► (extension, operation)
//	                              │
//	                 variant permitted? active on token?
//	                              │
//	              privileged? ──► Host.Authorize
//	                              │
//	                         Handler(ctx, call)
//
// Handlers run with the token's own context: they receive a Host that
// reads and writes the token's storage, and a per-extension State that the
// token owns and snapshots together with the rest of its state. A handler
// may call back into the token through Host.Invoke; the nested call is
// authorized again at the point it executes. The dispatcher holds no lock
// while a handler runs.
package extension
