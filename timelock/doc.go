// Package timelock implements the execution timelock: the single point of
// privileged authority over a governed target.
//
// A queued action becomes executable only after its eta has passed, and only
// until the grace period after the eta runs out. Decoupling "decided" from
// "effective" this way gives shareholders and observers a guaranteed reaction
// window before any governance decision takes effect.
//
// The pending set is keyed by the content hash of the full
// (target, value, signature, data, eta) tuple, so the same action queued for
// two different etas occupies two distinct slots and a duplicate queue of the
// same tuple is rejected outright.
//
// The timelock's own parameters (delay, admin) are only reachable by queuing
// a self-call through the same mechanism: the timelock cannot be reconfigured
// except via its own governed path.
package timelock
