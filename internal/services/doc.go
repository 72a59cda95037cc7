// Package services provides the centralized service registry for sentineld.
//
// Registry pattern for accessing the core services (sandbox manager, scan
// pipeline, session service, store). Use NewRegistry() to create a registry
// with service instances, then accessor methods to retrieve individual
// services.
package services
