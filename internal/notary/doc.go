// Package notary talks to an external attestation service that records
// media digests. Attestation is best-effort: the session keeps working
// when the service is down.
package notary
