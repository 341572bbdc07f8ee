/*
Package ports defines the driven ports (interfaces) used by the formguard
adapters.

These interfaces decouple the validation service from external backends so the
same handlers work with an in-process cache or a shared Redis instance.

# Key Interfaces

  - ResultCache: Stores encoded validation responses keyed by a request digest.
*/
package ports
