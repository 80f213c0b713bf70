// Package authz implements the request principal and the controlled
// bypass of per-row case policy.
//
// Core concepts:
//
//   - Principal: A single authorization identity per request (System/User/Test).
//     Set via NewSystemContext, NewUserContext, or WithPrincipal.
//
//   - Bypass: Controlled policy bypass via RunWithBypass (closure, preferred)
//     or WithBypassPrivacy (explicit context). Only system and test
//     principals may bypass. All bypass operations are audited.
//
//   - Elevated trust: RunWithElevatedTrust lets a user principal evaluate
//     relationship rows that its own policy would hide, pinned to a subject
//     that must equal the authenticated user. It is the only bypass
//     available to user principals.
//
//   - Feature decision: HasFeature / RequireFeature resolve a feature key
//     for a role through a FeatureChecker, with system and test principals
//     always allowed.
//
// Usage rules:
//
//  1. Policy guards must consult IsBypassActive before evaluating rows.
//  2. Prefer RunWithBypass / RunWithElevatedTrust closures to limit scope.
//  3. When using WithBypassPrivacy, assign to bypassCtx, never ctx.
//  4. All bypass reasons must be stable strings for audit aggregation.
//  5. Background tasks must declare System principal via NewSystemContext.
package authz
