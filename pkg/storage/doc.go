/*
Package storage provides the local BoltDB-backed record store.

It holds two kinds of records, each in its own bucket with JSON values:

  - Capacity-protection checkpoints: written when a scaling group's bounds
    are pinned, deleted when protection is released. If the process dies
    mid-operation the checkpoint survives, so validate can detect the
    pinned group, report the recorded prior bounds, and offer to release
    protection once the checkpoint is older than the staleness window.
  - Switch journal: an append-only log of completed traffic switches,
    surfaced by detailed status output.

This store is deliberately not the source of truth for which color is
active; that is the persisted deployment state behind the gateway.
*/
package storage
