// Package meta holds the metadata entities of a project: connections to
// external data sources and the models (tables and views) they expose.
//
// Connections are ordered among the connections of their project and models
// among the models of their connection. Both are served by
// repositorycache.Repository, so reads go through the cache and every
// structural change keeps sibling orders dense. Deleting a connection
// deletes its models.
//
// Connection configs are sealed with a Crypto before they reach the store
// and are only opened by Connections.ConnectionConfig.
package meta
