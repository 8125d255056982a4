// Package models defines domain entities and persistence interfaces for the music-genie service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs shaped by provider data
//   - [Playlist] : Playlist summary (id, name, owner, track count, image)
//   - [Song] : Song metadata; identity is the provider-assigned id only
//   - [FilterRequest] / [FilterResponse] : Filter pipeline input and output
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : Users created on first provider login, looked up by email
//   - [Provider] : Registered music providers (name → id)
//   - [Credential] : Per-(user, provider) link holding the encrypted refresh token
//   - [Session] : Ephemeral browser session with the live access token
//
// Persistent entities implement the [Model] interface providing ID generation,
// timestamps and validation. The [Repository] interface defines standard CRUD
// operations for database access.
package models
