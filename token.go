package tpoll

// Token is an opaque, caller-chosen identifier carried with a registration
// and returned on every event produced for that registration. tpoll never
// allocates or interprets a Token; the caller is responsible for its
// uniqueness across concurrently active registrations and for mapping it
// back to whatever logical object owns the source.
type Token uint64
