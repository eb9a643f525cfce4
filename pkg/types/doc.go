/*
Package types provides the core data structures and interfaces shared across
docvfs: the VFS node model, chat/signaling domain types, per-operation
request structs for DocService, and the tagged wire messages for
SigningRelay.

# Data Structures

Node is the Go representation of one `nodes` table row (spec.md §3.1).
DirEntry is the trimmed projection returned by readdir. SearchHit is one
search_text/search_binaries result.

Room, Message, and Attachment model the chat core (spec.md §3.2).

# Request Structs

Every DocService operation (spec.md §4.4) has a corresponding request
struct here (CreateFileRequest, SaveFileRequest, PasteItemsRequest, ...),
following the same flat-struct-with-json-tags convention the rest of the
codebase uses for wire payloads.

# Wire Messages

SigningRelay's JSON-over-WebSocket protocol (spec.md §4.5/§6.2) is modeled
as a tagged union: WireEnvelope carries just the `type` discriminator for
a first decode pass, and each concrete message kind (JoinMessage,
OfferMessage, BroadcastMessage, ...) is unmarshaled into once the type is
known.

# Interfaces

Cache, MetricsCollector, HealthChecker, ConnectionManager, and Verifier
are the cross-package contracts consumed by internal/cache,
internal/metrics, internal/health, internal/store, and
internal/signaling respectively, kept here to avoid import cycles.
*/
package types
