/*
Package types holds the contracts shared between the blokfs packages.

The operation dispatcher in internal/filesystem reports every filesystem request to a MetricsCollector;
internal/metrics provides the Prometheus implementation and tests substitute a recorder. Snapshot types
such as OperationStats travel from the dispatcher to the mount manager and the debug endpoints without
either side importing the other.
*/
package types
