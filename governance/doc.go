// Package governance implements the token governance state machine.
//
// Two orthogonal axes are tracked:
//
//	State:  Locked → Active → Tracked   (forward only, one step at a time)
//	System: AbsoluteMonarchy | ConstitutionalMonarchy | Democracy
//
// Every privileged operation, including SetState and SetSystem themselves,
// passes through Authorize, evaluated against the system in effect before
// the requested change. Under Democracy the maintainer has no standing:
// only a call dispatched on behalf of an executed proposal (a mediated
// call) is authorized. Under ConstitutionalMonarchy the maintainer keeps
// authority except for the operations configured as constitutional, which
// need mediation.
//
// Authority is resolved on every call. Nested calls made by extensions are
// checked again at the point they execute.
package governance
