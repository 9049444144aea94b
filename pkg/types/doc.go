/*
Package types defines the core data structures used throughout Cutover.

This package contains the domain model for blue/green fleet cutover:
environments and their two color groups, the persisted deployment state,
capacity protection records, health reports, and the status types surfaced
by the CLI. All other packages depend on it and it depends on nothing but
the standard library.

The two rules the model encodes:

  - DeploymentState.ActiveTargetRef must always resolve to the routable
    group of the color named by ActiveColor. A mismatch is a consistency
    fault that is surfaced, never guessed away.
  - CapacityProtectionRecord is ephemeral and restore-once: the Restored
    flag makes releasing protection idempotent so that normal completion
    and interrupt cleanup can both attempt it.
*/
package types
