// Package store defines the persistence interfaces and shared errors for
// the application. Concrete implementations live under
// internal/platform/postgres; services and job units depend only on the
// interfaces defined here.
package store
